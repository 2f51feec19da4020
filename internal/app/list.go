package app

import "context"

func (s Service) ListInstalled(ctx context.Context) (ListResult, error) {
	packages, err := s.Registry.ListInstalled(ctx)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Packages: packages}, nil
}
