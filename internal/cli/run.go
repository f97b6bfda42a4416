package cli

import "fmt"

// Execute handles the run command logic, dispatching to session or
// watch mode.
func Execute(opts RunOptions) error {
	if opts.Watch {
		if opts.Headless {
			return fmt.Errorf("--watch and --headless cannot be used together")
		}
		if opts.Source.File == "" && opts.Source.Dir == "" {
			return fmt.Errorf("--watch needs --file or --dir (the demo machine has no source to watch)")
		}
		return RunWatch(opts)
	}
	return RunSession(opts)
}
