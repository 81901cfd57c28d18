// Command jxlinfo prints the dimensions stored in the header of JPEG XL codestreams.
//
// Usage:
//
//	jxlinfo [-o text|json|yaml] [-v] file...
//
// A file named "-" is read from stdin. Files ending in .zst or .gz are decompressed first.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/exp/slices"
	"sigs.k8s.io/yaml"

	"github.com/gen2brain/jxln"
)

var formats = []string{"text", "json", "yaml"}

var (
	dasho string
	dashv bool
)

// info is one line (or document) of output.
type info struct {
	File     string `json:"file"`
	Width    uint32 `json:"width"`
	Height   uint32 `json:"height"`
	BitsRead uint64 `json:"bitsRead"`
}

// decompressors maps a file suffix to the reader that undoes it.
var decompressors = map[string]func(r io.Reader) (io.ReadCloser, error){
	".gz": func(r io.Reader) (io.ReadCloser, error) {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}

		return zr, nil
	},
	".zst": func(r io.Reader) (io.ReadCloser, error) {
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}

		return zr.IOReadCloser(), nil
	},
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("jxlinfo: ")

	flag.StringVar(&dasho, "o", "text", "output format (text, json or yaml)")
	flag.BoolVar(&dashv, "v", false, "verbose")
	flag.Parse()

	if !slices.Contains(formats, dasho) {
		log.Fatalf("unknown output format %q", dasho)
	}

	args := flag.Args()
	if len(args) == 0 {
		args = []string{"-"}
	}

	infos := []info{}
	failed := false
	for _, arg := range args {
		i, err := inspect(arg)
		if err != nil {
			log.Printf("%s: %s", arg, err)
			failed = true

			continue
		}

		if dashv {
			log.Printf("%s: %d header bits", arg, i.BitsRead)
		}
		infos = append(infos, i)
	}

	o := bufio.NewWriter(os.Stdout)
	if err := write(o, infos); err != nil {
		log.Fatal(err)
	}
	if err := o.Flush(); err != nil {
		log.Fatal(err)
	}

	if failed {
		os.Exit(1)
	}
}

// inspect reads the header of the named file.
func inspect(name string) (info, error) {
	var in io.Reader = os.Stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return info{}, err
		}
		defer f.Close()

		in = f
	}

	if dc, ok := decompressors[filepath.Ext(name)]; ok {
		rc, err := dc(in)
		if err != nil {
			return info{}, err
		}
		defer rc.Close()

		in = rc
	}

	d := jxln.NewDecoder(bufio.NewReader(in))
	h, _, err := d.ReadHeader()
	if err != nil {
		return info{}, err
	}

	return info{
		File:     name,
		Width:    h.Width,
		Height:   h.Height,
		BitsRead: d.BitsRead(),
	}, nil
}

// write prints infos in the selected output format.
func write(w io.Writer, infos []info) error {
	switch dasho {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(infos)
	case "yaml":
		buf, err := yaml.Marshal(infos)
		if err != nil {
			return err
		}

		_, err = w.Write(buf)

		return err
	default:
		for _, i := range infos {
			if _, err := fmt.Fprintf(w, "%s: %dx%d\n", i.File, i.Width, i.Height); err != nil {
				return err
			}
		}

		return nil
	}
}
