package searchdata

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	jsEscaper   = strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`)
)

// Write emits a shard in the generator's literal format
func Write(w io.Writer, shard *Shard) error {
	bw := bufio.NewWriter(w)

	bw.WriteString("var searchData=\n[\n")
	for i, e := range shard.Entries {
		bw.WriteString("  [")
		bw.WriteString(quote(e.Key))
		bw.WriteString(",[")
		bw.WriteString(quote(htmlEscaper.Replace(e.Display)))
		for _, t := range e.Targets {
			bw.WriteString(",[")
			bw.WriteString(quote(t.URL))
			if t.ParentFrame {
				bw.WriteString(",1,")
			} else {
				bw.WriteString(",0,")
			}
			bw.WriteString(quote(htmlEscaper.Replace(t.Scope)))
			bw.WriteString("]")
		}
		bw.WriteString("]]")
		if i < len(shard.Entries)-1 {
			bw.WriteString(",")
		}
		bw.WriteString("\n")
	}
	bw.WriteString("];\n")

	return bw.Flush()
}

// WriteSections emits a searchdata.js file for the given table
func WriteSections(w io.Writer, sections Sections) error {
	bw := bufio.NewWriter(w)

	writeTable := func(name string, value func(Section) string) {
		bw.WriteString("var " + name + " =\n{\n")
		for i, sec := range sections {
			bw.WriteString("  " + strconv.Itoa(sec.Index) + ": " + strconv.Quote(value(sec)))
			if i < len(sections)-1 {
				bw.WriteString(",")
			}
			bw.WriteString("\n")
		}
		bw.WriteString("};\n\n")
	}

	writeTable("indexSectionsWithContent", func(s Section) string { return s.Chars })
	writeTable("indexSectionNames", func(s Section) string { return s.Name })
	writeTable("indexSectionLabels", func(s Section) string { return s.Label })

	return bw.Flush()
}

// WriteDir writes every shard and the section table into dir
func WriteDir(dir string, sections Sections, shards []*Shard) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, shard := range shards {
		if err := writeFile(filepath.Join(dir, shard.Name+".js"), func(w io.Writer) error {
			return Write(w, shard)
		}); err != nil {
			return fmt.Errorf("failed to write shard %s: %w", shard.Name, err)
		}
	}

	if err := writeFile(filepath.Join(dir, SectionsFile), func(w io.Writer) error {
		return WriteSections(w, sections)
	}); err != nil {
		return fmt.Errorf("failed to write %s: %w", SectionsFile, err)
	}

	return nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func quote(s string) string {
	return "'" + jsEscaper.Replace(s) + "'"
}
