package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// catalog is a test database with three filed objects: two CT instances
// in study 1.2.1 (one copied, one referenced) and one MR instance in
// study 1.2.2.
type catalog struct {
	db    string
	files []string
}

func newCatalog(t *testing.T) *catalog {
	t.Helper()
	dir := t.TempDir()
	c := &catalog{db: filepath.Join(dir, "catalog.db")}
	for i, name := range []string{"a.dcm", "b.dcm", "c.dcm"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, make([]byte, 1000*(i+1)), 0o644))
		c.files = append(c.files, path)
	}

	objects := fmt.Sprintf(`file: %s
reference: copied
attributes:
  PatientID: P1
  PatientName: DOE^JOHN
  StudyInstanceUID: "1.2.1"
  StudyDate: "20030715"
  StudyDescription: CTHEAD
  SeriesInstanceUID: "1.2.1.1"
  Modality: CT
  SOPInstanceUID: "1.2.1.1.1"
  SOPClassUID: "1.2.840.10008.5.1.4.1.1.2"
  ImageType: [ORIGINAL, PRIMARY, AXIAL]
---
file: %s
reference: referenced
attributes:
  PatientID: P1
  PatientName: DOE^JOHN
  StudyInstanceUID: "1.2.1"
  StudyDate: "20030715"
  StudyDescription: CTHEAD
  SeriesInstanceUID: "1.2.1.1"
  Modality: CT
  SOPInstanceUID: "1.2.1.1.2"
  SOPClassUID: "1.2.840.10008.5.1.4.1.1.2"
---
file: %s
attributes:
  PatientID: P1
  PatientName: DOE^JOHN
  StudyInstanceUID: "1.2.2"
  StudyDate: "20030716"
  StudyDescription: MRBRAIN
  SeriesInstanceUID: "1.2.2.1"
  Modality: MR
  (0008,0018): "1.2.2.1.1"
  SOPClassUID: "1.2.840.10008.5.1.4.1.1.4"
`, c.files[0], c.files[1], c.files[2])

	path := filepath.Join(dir, "objects.yaml")
	require.NoError(t, os.WriteFile(path, []byte(objects), 0o644))

	_, err := c.run(t, "insert", path)
	require.NoError(t, err)
	return c
}

// run executes the root command against the catalog database and
// returns stdout.
func (c *catalog) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return execute(t, append(args, "--db", c.db)...)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err != nil {
		t.Logf("stderr: %s", errOut.String())
	}
	return out.String(), err
}
