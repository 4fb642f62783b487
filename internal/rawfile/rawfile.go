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
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

var (
	ErrNoData     = errors.New("rawfile: no Binary or Values section")
	ErrBadHeader  = errors.New("rawfile: malformed header")
	ErrTruncated  = errors.New("rawfile: data section truncated")
	ErrNoVariable = errors.New("rawfile: no such variable")
)

type Variable struct {
	Index int
	Name  string
	Type  string
}

type File struct {
	Title     string
	Date      string
	Plotname  string
	Flags     []string
	Command   string
	Offset    float64
	NumPoints int
	Vars      []Variable

	// UTF16 reports whether the header was UTF-16LE encoded.
	UTF16 bool

	real [][]float64
	imag [][]float64
}

// Open parses the raw file at path.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rf, err := Parse(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rf, nil
}

func Parse(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	utf16 := isUTF16(data)
	sec, err := findSection(data, utf16)
	if err != nil {
		return nil, err
	}

	header := data[:sec.headerEnd]
	if utf16 {
		header, err = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder().Bytes(header)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadHeader, err)
		}
	}

	f := &File{UTF16: utf16}
	if err := f.parseHeader(string(header)); err != nil {
		return nil, err
	}

	body := data[sec.bodyStart:]
	if sec.binary {
		err = f.decodeBinary(body)
	} else {
		if utf16 {
			body, err = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(body)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrBadHeader, err)
			}
		}
		err = f.decodeValues(string(body))
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func isUTF16(data []byte) bool {
	if len(data) >= 2 && data[0] == 0xFF && data[1] == 0xFE {
		return true
	}
	return len(data) >= 2 && data[0] != 0 && data[1] == 0
}

type section struct {
	binary    bool
	headerEnd int
	bodyStart int
}

// findSection locates the data marker line. headerEnd excludes the marker;
// bodyStart is the first byte after the marker's newline.
func findSection(data []byte, utf16 bool) (section, error) {
	enc := func(s string) []byte { return []byte(s) }
	if utf16 {
		enc = encodeUTF16
	}

	best := section{headerEnd: -1}
	for _, m := range []struct {
		marker string
		binary bool
	}{{"Binary:", true}, {"Values:", false}} {
		// The marker must start a line.
		idx := bytes.Index(data, enc("\n"+m.marker))
		if idx < 0 {
			continue
		}
		idx += len(enc("\n"))
		if best.headerEnd >= 0 && idx > best.headerEnd {
			continue
		}
		nl := bytes.Index(data[idx:], enc("\n"))
		if nl < 0 {
			return section{}, ErrTruncated
		}
		best = section{
			binary:    m.binary,
			headerEnd: idx,
			bodyStart: idx + nl + len(enc("\n")),
		}
	}
	if best.headerEnd < 0 {
		return section{}, ErrNoData
	}
	return best, nil
}

func encodeUTF16(s string) []byte {
	out := make([]byte, 0, 2*len(s))
	for i := 0; i < len(s); i++ {
		out = append(out, s[i], 0)
	}
	return out
}

func (f *File) parseHeader(header string) error {
	numVars := -1
	inVars := false

	for _, line := range strings.Split(header, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if inVars && (line[0] == '\t' || line[0] == ' ') {
			fields := strings.Fields(line)
			if len(fields) < 2 {
				return fmt.Errorf("%w: variable line %q", ErrBadHeader, line)
			}
			idx, err := strconv.Atoi(fields[0])
			if err != nil {
				return fmt.Errorf("%w: variable index %q", ErrBadHeader, fields[0])
			}
			v := Variable{Index: idx, Name: fields[1]}
			if len(fields) > 2 {
				v.Type = fields[2]
			}
			f.Vars = append(f.Vars, v)
			continue
		}
		inVars = false

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "title":
			f.Title = value
		case "date":
			f.Date = value
		case "plotname":
			f.Plotname = value
		case "flags":
			f.Flags = strings.Fields(strings.ToLower(value))
		case "command":
			f.Command = value
		case "offset":
			f.Offset, _ = strconv.ParseFloat(value, 64)
		case "no. variables":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return fmt.Errorf("%w: No. Variables %q", ErrBadHeader, value)
			}
			numVars = n
		case "no. points":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return fmt.Errorf("%w: No. Points %q", ErrBadHeader, value)
			}
			f.NumPoints = n
		case "variables":
			inVars = true
		}
	}

	if numVars < 0 {
		return fmt.Errorf("%w: missing No. Variables", ErrBadHeader)
	}
	if numVars == 0 {
		return fmt.Errorf("%w: no variables", ErrBadHeader)
	}
	if len(f.Vars) != numVars {
		return fmt.Errorf("%w: %d variables declared, %d listed", ErrBadHeader, numVars, len(f.Vars))
	}
	for i, v := range f.Vars {
		if v.Index != i {
			return fmt.Errorf("%w: variable %q has index %d, want %d", ErrBadHeader, v.Name, v.Index, i)
		}
	}
	return nil
}

func (f *File) HasFlag(flag string) bool {
	for _, fl := range f.Flags {
		if fl == flag {
			return true
		}
	}
	return false
}

func (f *File) IsComplex() bool { return f.HasFlag("complex") }

func (f *File) isTransient() bool {
	return strings.Contains(strings.ToLower(f.Plotname), "transient")
}

// width returns the byte width of one sample of variable v.
func (f *File) width(v int) int {
	switch {
	case f.IsComplex():
		return 16
	case f.HasFlag("double"):
		return 8
	case v == 0:
		return 8
	default:
		return 4
	}
}

func (f *File) alloc() {
	n := len(f.Vars)
	f.real = make([][]float64, n)
	for i := range f.real {
		f.real[i] = make([]float64, f.NumPoints)
	}
	if f.IsComplex() {
		f.imag = make([][]float64, n)
		for i := range f.imag {
			f.imag[i] = make([]float64, f.NumPoints)
		}
	}
}

func (f *File) decodeBinary(body []byte) error {
	pointSize := 0
	for v := range f.Vars {
		pointSize += f.width(v)
	}
	if len(body)/pointSize < f.NumPoints {
		return fmt.Errorf("%w: need %d points of %d bytes, have %d bytes", ErrTruncated, f.NumPoints, pointSize, len(body))
	}

	f.alloc()
	fast := f.HasFlag("fastaccess")
	transient := f.isTransient()

	off := 0
	read := func(v, p int) {
		switch w := f.width(v); w {
		case 16:
			f.real[v][p] = math.Float64frombits(binary.LittleEndian.Uint64(body[off:]))
			f.imag[v][p] = math.Float64frombits(binary.LittleEndian.Uint64(body[off+8:]))
		case 8:
			f.real[v][p] = math.Float64frombits(binary.LittleEndian.Uint64(body[off:]))
		default:
			f.real[v][p] = float64(math.Float32frombits(binary.LittleEndian.Uint32(body[off:])))
		}
		if v == 0 && transient {
			f.real[v][p] = math.Abs(f.real[v][p])
		}
		off += f.width(v)
	}

	if fast {
		for v := range f.Vars {
			for p := 0; p < f.NumPoints; p++ {
				read(v, p)
			}
		}
		return nil
	}
	for p := 0; p < f.NumPoints; p++ {
		for v := range f.Vars {
			read(v, p)
		}
	}
	return nil
}

// decodeValues reads the ASCII section: each point is its index followed
// by one value per variable. Complex values are written "re,im".
func (f *File) decodeValues(body string) error {
	tokens := strings.Fields(body)
	if len(tokens)/(len(f.Vars)+1) < f.NumPoints {
		return fmt.Errorf("%w: need %d points of %d values, have %d values", ErrTruncated, f.NumPoints, len(f.Vars)+1, len(tokens))
	}
	f.alloc()

	pos := 0
	for p := 0; p < f.NumPoints; p++ {
		pos++ // point index
		for v := range f.Vars {
			tok := tokens[pos]
			pos++
			if f.IsComplex() {
				re, im, _ := strings.Cut(tok, ",")
				var err error
				if f.real[v][p], err = strconv.ParseFloat(re, 64); err != nil {
					return fmt.Errorf("%w: point %d: %v", ErrBadHeader, p, err)
				}
				if im != "" {
					if f.imag[v][p], err = strconv.ParseFloat(im, 64); err != nil {
						return fmt.Errorf("%w: point %d: %v", ErrBadHeader, p, err)
					}
				}
				continue
			}
			val, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return fmt.Errorf("%w: point %d: %v", ErrBadHeader, p, err)
			}
			f.real[v][p] = val
		}
	}
	return nil
}

// Lookup returns the index of the named variable, ignoring case.
func (f *File) Lookup(name string) (int, bool) {
	for i, v := range f.Vars {
		if strings.EqualFold(v.Name, name) {
			return i, true
		}
	}
	return 0, false
}

// Data returns the real samples of the named variable. The slice is shared
// with the File and must not be modified.
func (f *File) Data(name string) ([]float64, error) {
	i, ok := f.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoVariable, name)
	}
	return f.real[i], nil
}

// Imag returns the imaginary samples of a complex variable.
func (f *File) Imag(name string) ([]float64, error) {
	i, ok := f.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoVariable, name)
	}
	if f.imag == nil {
		return make([]float64, f.NumPoints), nil
	}
	return f.imag[i], nil
}

// Axis returns the samples of variable 0, the sweep or time axis.
func (f *File) Axis() []float64 {
	if len(f.real) == 0 {
		return nil
	}
	return f.real[0]
}

func (f *File) VariableNames() []string {
	names := make([]string, len(f.Vars))
	for i, v := range f.Vars {
		names[i] = v.Name
	}
	return names
}
