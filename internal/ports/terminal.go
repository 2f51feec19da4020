package ports

// PrompterPort asks the operator a yes/no question and blocks until
// answered.
type PrompterPort interface {
	Confirm(prompt string) bool
}

type SizeFormatterPort interface {
	Humanize(bytes int64) (string, error)
}
