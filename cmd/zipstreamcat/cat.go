package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/zipstream-go/zipstream"
)

func newCatCommand() *cli.Command {
	return &cli.Command{
		Name:      "cat",
		Usage:     "stream one entry's decompressed content to stdout",
		ArgsUsage: "<archive.zip> <entry-name>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return errors.New("cat requires an archive path and an entry name")
			}
			return runCat(c.Args().Get(0), c.Args().Get(1))
		},
	}
}

func runCat(path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening archive")
	}
	defer f.Close()

	z := zipstream.NewReader(f, zipstream.WithStoredDataDescriptor(true))
	defer z.Close()

	for {
		entry, err := z.NextEntry()
		if err == io.EOF {
			return errors.Errorf("entry %q not found", name)
		}
		if err != nil {
			return errors.Wrap(err, "reading next entry")
		}
		if entry.Name != name {
			continue
		}
		if !z.CanReadEntryData(entry) {
			return errors.Errorf("entry %q uses an unsupported compression method", name)
		}

		logger.Debug().Str("name", name).Msg("streaming entry to stdout")
		if _, err := io.Copy(os.Stdout, z); err != nil {
			return errors.Wrapf(err, "streaming entry %q", name)
		}
		return nil
	}
}
