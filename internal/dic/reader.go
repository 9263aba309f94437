package dic

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// DatHeaderLines is the number of header rows in a DIC .dat export.
const DatHeaderLines = 3

// datColumns is the number of leading numeric columns read per row:
// x0 y0 z0 dx dy dz. Trailing columns (strain, sigma, ...) are ignored.
const datColumns = 6

// ErrNonFinite is returned for frames carrying NaN or infinite coordinates.
var ErrNonFinite = errors.New("non-finite value")

// ReadDat parses a whitespace-delimited DIC export. The first
// DatHeaderLines lines are skipped, blank lines are ignored, and every other
// line must start with six finite numeric fields.
func ReadDat(r io.Reader) (*PointCloud, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var points []Point
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if lineNo <= DatHeaderLines {
			continue
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < datColumns {
			return nil, fmt.Errorf("line %d: got %d columns, want at least %d", lineNo, len(fields), datColumns)
		}
		var v [datColumns]float64
		for i := 0; i < datColumns; i++ {
			f, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: %w", lineNo, i+1, err)
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("line %d column %d: %w %q", lineNo, i+1, ErrNonFinite, fields[i])
			}
			v[i] = f
		}
		points = append(points, Point{X0: v[0], Y0: v[1], Z0: v[2], DX: v[3], DY: v[4], DZ: v[5]})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read DIC data: %w", err)
	}
	return &PointCloud{points: points}, nil
}

// WriteDat writes pc in the .dat layout ReadDat accepts, with a
// three-line header naming the columns.
func WriteDat(w io.Writer, pc *PointCloud, title string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "TITLE = %q\n", title)
	fmt.Fprintln(bw, `VARIABLES = "x" "y" "z" "dx" "dy" "dz"`)
	fmt.Fprintf(bw, "ZONE I=%d\n", pc.Len())
	for _, p := range pc.points {
		fmt.Fprintf(bw, "%s %s %s %s %s %s\n",
			formatFloat(p.X0), formatFloat(p.Y0), formatFloat(p.Z0),
			formatFloat(p.DX), formatFloat(p.DY), formatFloat(p.DZ))
	}
	return bw.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
