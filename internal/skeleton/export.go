package skeleton

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// WriteOBJ writes the skeleton and soma objects as Wavefront OBJ line
// geometry. Bevel objects are skipped. Each polyline becomes one "l" record;
// the polyline material is emitted as "usemtl" with the palette name.
func WriteOBJ(w io.Writer, objects []*Object) error {
	bw := bufio.NewWriter(w)
	vertex := 0
	for _, obj := range objects {
		if obj.Kind == KindBevel {
			continue
		}
		fmt.Fprintf(bw, "o %s\n", obj.Name)
		for _, pl := range obj.PolyLines {
			if len(pl.Samples) < 2 {
				continue
			}
			if name := materialName(obj, pl.MaterialIndex); name != "" {
				fmt.Fprintf(bw, "usemtl %s\n", name)
			}
			for _, p := range pl.Samples {
				fmt.Fprintf(bw, "v %s %s %s\n", ftoa(p.Position.X), ftoa(p.Position.Y), ftoa(p.Position.Z))
			}
			bw.WriteString("l")
			for range pl.Samples {
				vertex++
				bw.WriteString(" " + strconv.Itoa(vertex))
			}
			bw.WriteString("\n")
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("skeleton: write obj: %w", err)
	}
	return nil
}

func materialName(obj *Object, index int) string {
	if index < 0 || index >= len(obj.Materials) {
		return ""
	}
	return obj.Materials[index].Name
}

func ftoa(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', -1, 32)
}
