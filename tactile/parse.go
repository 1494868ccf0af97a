package tactile

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
)

const numColumns = 6

// Table is a parsed sensor table. Rows keep file order.
type Table struct {
	defs []SensorDefinition
}

// Definitions returns the parsed rows.
func (t *Table) Definitions() []SensorDefinition {
	out := make([]SensorDefinition, len(t.defs))
	copy(out, t.defs)
	return out
}

func (t *Table) Len() int { return len(t.defs) }

func (t *Table) Names() []string {
	out := make([]string, len(t.defs))
	for i, d := range t.defs {
		out[i] = d.Name
	}
	return out
}

func (t *Table) Positions() []r3.Vector {
	out := make([]r3.Vector, len(t.defs))
	for i, d := range t.defs {
		out[i] = d.Offset
	}
	return out
}

func (t *Table) Radii() []float64 {
	out := make([]float64, len(t.defs))
	for i, d := range t.defs {
		out[i] = d.Radius
	}
	return out
}

// ParentPaths returns the attachment path of every row, duplicates included.
func (t *Table) ParentPaths() []string {
	out := make([]string, len(t.defs))
	for i, d := range t.defs {
		out[i] = d.ParentPath
	}
	return out
}

// ParseFile reads a sensor table from path. The file has one header line
// followed by rows of
//
//	name,x_offset,y_offset,z_offset,radius,attachment_path
func ParseFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{File: path, Reason: "cannot open file", Err: err}
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.File = path
		}
		return nil, err
	}
	return t, nil
}

// Parse reads a sensor table. Either every row parses or an error is
// returned and no rows are.
func Parse(r io.Reader) (*Table, error) {
	scanner := bufio.NewScanner(r)
	var defs []SensorDefinition
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo == 1 {
			continue
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		def, err := parseRow(line)
		if err != nil {
			err.Line = lineNo
			return nil, err
		}
		defs = append(defs, def)
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Reason: "read failed", Err: err}
	}
	if lineNo == 0 {
		return nil, &ParseError{Reason: "empty file"}
	}
	if len(defs) < MinSensors {
		return nil, &ParseError{
			Reason: "need at least " + strconv.Itoa(MinSensors) + " sensors, found " + strconv.Itoa(len(defs)),
		}
	}
	return &Table{defs: defs}, nil
}

func parseRow(line string) (SensorDefinition, *ParseError) {
	var def SensorDefinition
	fields := strings.Split(line, ",")
	if len(fields) != numColumns {
		return def, &ParseError{
			Reason: "expected " + strconv.Itoa(numColumns) + " fields, found " + strconv.Itoa(len(fields)),
		}
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	def.Name = fields[0]
	if def.Name == "" {
		return def, &ParseError{Reason: "empty sensor name"}
	}
	def.ParentPath = fields[5]
	if def.ParentPath == "" {
		return def, &ParseError{Reason: "empty attachment path for sensor " + def.Name}
	}

	var xyz [3]float64
	for i := range xyz {
		v, err := parseFinite(fields[1+i])
		if err != nil {
			return def, &ParseError{Reason: "bad offset for sensor " + def.Name, Err: err}
		}
		xyz[i] = v
	}
	def.Offset = r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]}

	radius, err := parseFinite(fields[4])
	if err != nil {
		return def, &ParseError{Reason: "bad radius for sensor " + def.Name, Err: err}
	}
	if radius <= 0 {
		return def, &ParseError{Reason: "radius must be positive for sensor " + def.Name}
	}
	def.Radius = radius
	return def, nil
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, strconv.ErrRange
	}
	return v, nil
}
