package jacoco

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/linebyline/covgate/internal/application"
	"github.com/linebyline/covgate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<!DOCTYPE report PUBLIC "-//JACOCO//DTD Report 1.1//EN" "report.dtd">
<report name="acme">
  <sessioninfo id="host-1" start="1700000000000" dump="1700000001000"/>
  <package name="com/acme">
    <class name="com/acme/Foo" sourcefilename="Foo.java">
      <method name="bar" desc="()V" line="3">
        <counter type="INSTRUCTION" missed="2" covered="8"/>
      </method>
      <counter type="INSTRUCTION" missed="2" covered="8"/>
      <counter type="BRANCH" missed="1" covered="1"/>
      <counter type="LINE" missed="1" covered="3"/>
    </class>
    <class name="com/acme/Foo$Inner" sourcefilename="Foo.java">
      <counter type="INSTRUCTION" missed="0" covered="2"/>
      <counter type="LINE" missed="0" covered="1"/>
    </class>
    <sourcefile name="Foo.java">
      <line nr="3" mi="0" ci="3" mb="0" cb="0"/>
      <line nr="4" mi="1" ci="2" mb="1" cb="1"/>
      <line nr="5" mi="0" ci="2" mb="1" cb="1"/>
      <line nr="6" mi="1" ci="0" mb="0" cb="0"/>
      <line nr="7" mi="0" ci="1" mb="0" cb="0"/>
      <counter type="LINE" missed="1" covered="4"/>
    </sourcefile>
  </package>
</report>`

func TestParser_Format(t *testing.T) {
	assert.Equal(t, application.FormatJaCoCo, New().Format())
}

func TestParser_Open(t *testing.T) {
	rep, err := New().Open(createTempFile(t, sampleReport))
	require.NoError(t, err)

	records := rep.Records()
	require.Len(t, records, 2)

	foo := records[0]
	assert.Equal(t, "com/acme/Foo", foo.Name())
	assert.Equal(t, domain.Counter{Covered: 3, Missed: 1}, foo.LineCounter())
	assert.Equal(t, domain.Counter{Covered: 8, Missed: 2}, foo.InstructionCounter())

	assert.Equal(t, domain.LineFullyCovered, foo.LineStatus(3))
	assert.Equal(t, domain.LinePartlyCovered, foo.LineStatus(4))
	assert.Equal(t, domain.LinePartlyCovered, foo.LineStatus(5))
	assert.Equal(t, domain.LineNotCovered, foo.LineStatus(6))
	assert.Equal(t, domain.LineFullyCovered, foo.LineStatus(7))
	assert.Equal(t, domain.LineEmpty, foo.LineStatus(1))

	inner := records[1]
	assert.Equal(t, "com/acme/Foo$Inner", inner.Name())
	assert.Equal(t, domain.Counter{Covered: 1, Missed: 0}, inner.LineCounter())
}

func TestParser_Open_NestedClassesShareSourceLines(t *testing.T) {
	rep, err := New().Open(createTempFile(t, sampleReport))
	require.NoError(t, err)

	records := rep.Records()
	require.Len(t, records, 2)
	for line := 3; line <= 7; line++ {
		assert.Equal(t, records[0].LineStatus(line), records[1].LineStatus(line), "line %d", line)
	}
}

func TestParser_Open_Groups(t *testing.T) {
	content := `<?xml version="1.0"?>
<report name="multi">
  <group name="core">
    <package name="a">
      <class name="a/A" sourcefilename="A.java">
        <counter type="LINE" missed="0" covered="1"/>
      </class>
      <sourcefile name="A.java"><line nr="1" mi="0" ci="1" mb="0" cb="0"/></sourcefile>
    </package>
    <group name="nested">
      <package name="b">
        <class name="b/B">
          <counter type="LINE" missed="1" covered="0"/>
        </class>
        <sourcefile name="B.java"><line nr="2" mi="3" ci="0" mb="0" cb="0"/></sourcefile>
      </package>
    </group>
  </group>
</report>`

	rep, err := New().Open(createTempFile(t, content))
	require.NoError(t, err)

	records := rep.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "a/A", records[0].Name())
	assert.Equal(t, "b/B", records[1].Name())
	// class without sourcefilename falls back to its simple name
	assert.Equal(t, domain.LineNotCovered, records[1].LineStatus(2))
}

func TestParser_Open_InvalidXML(t *testing.T) {
	_, err := New().Open(createTempFile(t, "<report><package"))
	assert.Error(t, err)
}

func TestParser_Open_FileNotFound(t *testing.T) {
	_, err := New().Open(filepath.Join(t.TempDir(), "missing.xml"))
	assert.Error(t, err)
}

func createTempFile(t *testing.T, content string) string {
	t.Helper()
	tmpdir := t.TempDir()
	tmpfile := filepath.Join(tmpdir, "jacoco.xml")
	err := os.WriteFile(tmpfile, []byte(content), 0o644)
	require.NoError(t, err)
	return tmpfile
}
