package types

// Constraint is a parsed dependency expression such as "libfoo>=2.0".
type Constraint struct {
	Name    string
	Op      ConstraintOp
	Version string
	Source  string
}

func (c Constraint) String() string {
	if c.Op == ConstraintOpNone {
		return c.Name
	}
	return c.Name + " " + string(c.Op) + " " + c.Version
}
