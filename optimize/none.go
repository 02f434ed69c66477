package optimize

// None is an optimizer which computes the initial value and exits.
type None struct {
	BaseOptimizer
}

// NewNone creates an optimizer which computes the objective at the
// starting point only.
func NewNone() *None {
	return &None{
		BaseOptimizer: newBaseOptimizer("none"),
	}
}

// Run evaluates the objective once.
func (n *None) Run(iterations int) {
	n.reset()
	n.PrintHeader()
	n.evaluateOnly(false)
}
