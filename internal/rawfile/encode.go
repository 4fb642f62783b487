package rawfile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// New builds a real-valued File from columns. columns[0] is the axis.
func New(title, plotname string, vars []Variable, columns [][]float64) (*File, error) {
	if len(vars) == 0 || len(vars) != len(columns) {
		return nil, errors.New("rawfile: one column per variable required")
	}
	points := len(columns[0])
	for i, c := range columns {
		if len(c) != points {
			return nil, fmt.Errorf("rawfile: column %d has %d points, want %d", i, len(c), points)
		}
	}
	f := &File{
		Title:     title,
		Plotname:  plotname,
		Flags:     []string{"real", "forward"},
		NumPoints: points,
		Vars:      make([]Variable, len(vars)),
		real:      make([][]float64, len(columns)),
	}
	for i, v := range vars {
		v.Index = i
		f.Vars[i] = v
		f.real[i] = append([]float64(nil), columns[i]...)
	}
	return f, nil
}

// Encode writes f in LTspice binary layout. Complex files are not
// supported. With utf16 set the header is UTF-16LE as LTspiceXVII writes it.
func Encode(w io.Writer, f *File, utf16 bool) error {
	if f.IsComplex() {
		return errors.New("rawfile: encoding complex data is not supported")
	}

	var hdr strings.Builder
	fmt.Fprintf(&hdr, "Title: %s\n", f.Title)
	fmt.Fprintf(&hdr, "Date: %s\n", f.Date)
	fmt.Fprintf(&hdr, "Plotname: %s\n", f.Plotname)
	fmt.Fprintf(&hdr, "Flags: %s\n", strings.Join(f.Flags, " "))
	fmt.Fprintf(&hdr, "No. Variables: %d\n", len(f.Vars))
	fmt.Fprintf(&hdr, "No. Points: %d\n", f.NumPoints)
	fmt.Fprintf(&hdr, "Offset:   %.16e\n", f.Offset)
	fmt.Fprintf(&hdr, "Command: %s\n", f.Command)
	fmt.Fprintln(&hdr, "Variables:")
	for _, v := range f.Vars {
		fmt.Fprintf(&hdr, "\t%d\t%s\t%s\n", v.Index, v.Name, v.Type)
	}
	fmt.Fprintln(&hdr, "Binary:")

	bw := bufio.NewWriter(w)
	if utf16 {
		bw.Write(encodeUTF16(hdr.String()))
	} else {
		bw.WriteString(hdr.String())
	}

	var buf [8]byte
	put := func(v, p int) {
		x := f.real[v][p]
		if f.width(v) == 8 {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(x))
			bw.Write(buf[:8])
			return
		}
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(float32(x)))
		bw.Write(buf[:4])
	}

	if f.HasFlag("fastaccess") {
		for v := range f.Vars {
			for p := 0; p < f.NumPoints; p++ {
				put(v, p)
			}
		}
	} else {
		for p := 0; p < f.NumPoints; p++ {
			for v := range f.Vars {
				put(v, p)
			}
		}
	}
	return bw.Flush()
}

func (f *File) Bytes(utf16 bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, f, utf16); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func WriteFile(path string, f *File, utf16 bool) error {
	data, err := f.Bytes(utf16)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
