package scene

import (
	"bufio"
	"fmt"
	"io"
)

// WritePCD writes the cloud as an ASCII PCD v0.7 file (unorganized, x y z)
func WritePCD(out io.Writer, pc *PointCloud) error {
	w := bufio.NewWriter(out)

	_, err := fmt.Fprintf(w, "# .PCD v0.7 - frame %s seq %d\n"+
		"VERSION .7\n"+
		"FIELDS x y z\n"+
		"SIZE 4 4 4\n"+
		"TYPE F F F\n"+
		"COUNT 1 1 1\n"+
		"WIDTH %d\n"+
		"HEIGHT 1\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n"+
		"DATA ascii\n",
		pc.FrameID, pc.Seq, pc.Len(), pc.Len())
	if err != nil {
		return fmt.Errorf("writing PCD header: %w", err)
	}

	for _, p := range pc.Points {
		if _, err := fmt.Fprintf(w, "%.6f %.6f %.6f\n", p.X, p.Y, p.Z); err != nil {
			return fmt.Errorf("writing PCD point: %w", err)
		}
	}

	return w.Flush()
}
