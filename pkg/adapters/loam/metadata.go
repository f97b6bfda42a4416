package loam

// StateMetadata represents the frontmatter of a state document.
// It uses "mapstructure" tags to match standard Frontmatter/YAML keys.
// The document body becomes the state's description; the machine
// description is taken from the initial state's body.
type StateMetadata struct {
	ID      string `json:"id" mapstructure:"id"`
	Machine string `json:"machine" mapstructure:"machine"`
	Label   string `json:"label" mapstructure:"label"`
	Color   string `json:"color" mapstructure:"color"`

	// Initial marks the state the machine starts in. Exactly one
	// state per machine may set it.
	Initial bool `json:"initial" mapstructure:"initial"`

	// Boot lists action expressions run once at startup, before the
	// initial state's entry actions. Only read from the initial state.
	Boot []string `json:"boot" mapstructure:"boot"`

	// Entry and Exit list action expressions run when the state is
	// entered or left.
	Entry []string `json:"entry" mapstructure:"entry"`
	Exit  []string `json:"exit" mapstructure:"exit"`

	Transitions []LoaderTransition `json:"transitions" mapstructure:"transitions"`

	// Tokens maps single-character inputs to events. Usually declared
	// on the initial state, but any state document may contribute.
	Tokens []LoaderToken `json:"tokens" mapstructure:"tokens"`

	// Events declares alphabet members that appear in no transition.
	Events []string `json:"events" mapstructure:"events"`
}

// LoaderTransition is one outgoing transition of a state document.
type LoaderTransition struct {
	On       string   `json:"on" mapstructure:"on"`
	To       string   `json:"to" mapstructure:"to"`
	Guard    string   `json:"guard" mapstructure:"guard"`
	Internal bool     `json:"internal" mapstructure:"internal"`
	Do       []string `json:"do" mapstructure:"do"`
}

// LoaderToken is one input token binding.
type LoaderToken struct {
	Key    string `json:"key" mapstructure:"key"`
	Event  string `json:"event" mapstructure:"event"`
	Notice string `json:"notice" mapstructure:"notice"`
}
