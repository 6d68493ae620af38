package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yndnr/meshkv/pkg/resp"
)

// TextFormatter renders replies like an interactive redis-cli.
type TextFormatter struct{}

// Format writes v followed by a newline.
func (f *TextFormatter) Format(w io.Writer, v resp.Value) error {
	var b strings.Builder
	writeText(&b, v, "")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeText(b *strings.Builder, v resp.Value, indent string) {
	switch v.Type {
	case resp.TypeStatus:
		b.WriteString(v.Str)
	case resp.TypeError:
		b.WriteString("(error) ")
		b.WriteString(v.Str)
	case resp.TypeInteger:
		b.WriteString("(integer) ")
		b.WriteString(strconv.FormatInt(v.Int, 10))
	case resp.TypeBulk:
		if v.Null {
			b.WriteString("(nil)")
		} else {
			b.WriteString(strconv.Quote(string(v.Bulk)))
		}
	case resp.TypeArray:
		if v.Null {
			b.WriteString("(nil)")
			break
		}
		if len(v.Array) == 0 {
			b.WriteString("(empty array)")
			break
		}
		width := len(strconv.Itoa(len(v.Array)))
		for i, item := range v.Array {
			prefix := fmt.Sprintf("%*d) ", width, i+1)
			if i > 0 {
				b.WriteString(indent)
			}
			b.WriteString(prefix)
			writeText(b, item, indent+strings.Repeat(" ", len(prefix)))
			if i < len(v.Array)-1 {
				b.WriteByte('\n')
			}
		}
	}
	if indent == "" {
		b.WriteByte('\n')
	}
}

// RawFormatter prints bare values, one array element per line.
type RawFormatter struct{}

// Format writes v without quoting or type prefixes.
func (f *RawFormatter) Format(w io.Writer, v resp.Value) error {
	if v.Type == resp.TypeArray {
		for _, item := range v.Array {
			if err := f.Format(w, item); err != nil {
				return err
			}
		}
		return nil
	}
	_, err := io.WriteString(w, v.String()+"\n")
	return err
}
