package wire

import (
	"fmt"
	"os"
)

// ValidateStreams fails startup if either standard stream is not a pipe
// (spec §4.A: "the browser always spawns with pipes; anything else means
// the process was launched incorrectly").
func ValidateStreams(stdin, stdout *os.File) error {
	if err := validatePipe(stdin, "stdin"); err != nil {
		return err
	}
	if err := validatePipe(stdout, "stdout"); err != nil {
		return err
	}
	return nil
}

func validatePipe(f *os.File, name string) error {
	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("wire: stat %s: %w", name, err)
	}
	if fi.Mode()&os.ModeNamedPipe == 0 {
		return fmt.Errorf("%w: %s", ErrNotAPipe, name)
	}
	return nil
}
