package main

import (
	"archive/zip"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"

	"github.com/zipstream-go/zipstream"
)

func newListCommand() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "print a table of every entry in an archive",
		ArgsUsage: "<archive.zip>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("list requires exactly one archive path")
			}
			return runList(c.Args().First())
		},
	}
}

func runList(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening archive")
	}
	defer f.Close()

	z := zipstream.NewReader(f)
	defer z.Close()

	tbl := table.New("index", "name", "method", "compressed", "uncompressed", "crc32", "zip64", "data descriptor")
	for {
		entry, err := z.NextEntry()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "reading next entry")
		}

		// Drain the entry now: a data-descriptor entry's sizes and CRC
		// aren't known until its content has actually been read, and the
		// table wants them filled in for the row below.
		if z.CanReadEntryData(entry) {
			if _, err := io.Copy(io.Discard, z); err != nil {
				return errors.Wrapf(err, "reading entry %q", entry.Name)
			}
		}

		method := "stored"
		if entry.Method == zip.Deflate {
			method = "deflated"
		}

		tbl.AddRow(
			entry.Index,
			entry.Name,
			method,
			entry.CompressedSize64,
			entry.UncompressedSize64,
			fmt.Sprintf("%08x", entry.CRC32),
			entry.UsesZIP64,
			entry.UsesDataDescriptor,
		)

		logger.Debug().Str("name", entry.Name).Msg("listed entry")
	}
	tbl.Print()
	return nil
}
