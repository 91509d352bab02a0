package actions

import (
	"fmt"
	"io"

	"github.com/relloyd/pgmirror/helper"
	"github.com/relloyd/pgmirror/ignore"
)

type IgnoreConfig struct {
	IgnoreFile   string `errorTxt:"ignore file" mandatory:"yes"`
	SourceSchema string `errorTxt:"source schema" mandatory:"yes"`
	Tables       []string
}

// RunIgnoreList prints every ignored table in the order they were added.
func RunIgnoreList(cfg *IgnoreConfig, out io.Writer) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	r, err := ignore.Load(cfg.IgnoreFile)
	if err != nil {
		return err
	}
	for _, id := range r.List() {
		_, _ = fmt.Fprintln(out, id)
	}
	return nil
}

// RunIgnoreAdd adds tables to the ignore file.
// Bare table names are qualified with the source schema.
func RunIgnoreAdd(cfg *IgnoreConfig, out io.Writer) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	if len(cfg.Tables) == 0 {
		return fmt.Errorf("please supply at least one table name")
	}
	r, err := ignore.Load(cfg.IgnoreFile)
	if err != nil {
		return err
	}
	for _, name := range cfg.Tables {
		id := helper.NormaliseTableIdentifier(cfg.SourceSchema, name)
		if r.Contains(id) {
			_, _ = fmt.Fprintf(out, "Table %q is already ignored\n", id)
			continue
		}
		if err = r.Add(id); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "Table %q added to %q\n", id, r.Path())
	}
	return nil
}
