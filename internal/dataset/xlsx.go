package dataset

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// ReadXLSX loads one worksheet of an .xlsx workbook into a Table with the
// same column rules as Read. sheet selects by name (case-insensitive);
// empty picks the first sheet. Numeric date cells are read as spreadsheet
// date serials.
func ReadXLSX(filePath, sheet string, opt ReadOptions) (*Table, error) {
	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer zr.Close()

	target, err := sheetTarget(&zr.Reader, sheet)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(filePath), err)
	}
	shared := parseSharedStrings(zipEntry(&zr.Reader, "xl/sharedStrings.xml"))
	data := zipEntry(&zr.Reader, target)
	if data == nil {
		return nil, fmt.Errorf("%s: worksheet %s missing", filepath.Base(filePath), target)
	}
	rr := &sheetRows{dec: xml.NewDecoder(bytes.NewReader(data)), shared: shared}
	for i := 0; i < opt.SkipRows; i++ {
		if _, err := rr.Next(); err != nil {
			return nil, fmt.Errorf("skip row %d: %w", i+1, err)
		}
	}
	return readRecords(rr.Next, filepath.Base(filePath), opt, true)
}

type workbookSheet struct {
	Name string `xml:"name,attr"`
	RID  string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
}

type relationship struct {
	ID     string `xml:"Id,attr"`
	Target string `xml:"Target,attr"`
}

// sheetTarget resolves a sheet name to its zip entry through the workbook
// relationships.
func sheetTarget(zr *zip.Reader, sheet string) (string, error) {
	var wb struct {
		Sheets []workbookSheet `xml:"sheets>sheet"`
	}
	if err := xml.Unmarshal(zipEntry(zr, "xl/workbook.xml"), &wb); err != nil {
		return "", fmt.Errorf("parse workbook: %w", err)
	}
	var rels struct {
		Items []relationship `xml:"Relationship"`
	}
	if data := zipEntry(zr, "xl/_rels/workbook.xml.rels"); data != nil {
		if err := xml.Unmarshal(data, &rels); err != nil {
			return "", fmt.Errorf("parse relationships: %w", err)
		}
	}
	if len(wb.Sheets) == 0 {
		return "xl/worksheets/sheet1.xml", nil
	}
	pick := wb.Sheets[0]
	if sheet != "" {
		found := false
		names := make([]string, len(wb.Sheets))
		for i, s := range wb.Sheets {
			names[i] = s.Name
			if !found && strings.EqualFold(s.Name, sheet) {
				pick, found = s, true
			}
		}
		if !found {
			return "", fmt.Errorf("sheet %q not found (available: %s)", sheet, strings.Join(names, ", "))
		}
	}
	for _, r := range rels.Items {
		if r.ID == pick.RID {
			return normalizeRelPath(r.Target), nil
		}
	}
	return "", fmt.Errorf("sheet %q has no worksheet relationship", pick.Name)
}

// normalizeRelPath maps a relationship target ("/xl/worksheets/sheet1.xml"
// or "worksheets/sheet1.xml") to its zip entry name.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}

func zipEntry(zr *zip.Reader, name string) []byte {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil
		}
		defer rc.Close()
		b, _ := io.ReadAll(rc)
		return b
	}
	return nil
}

func parseSharedStrings(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	var sst struct {
		Items []struct {
			T    string `xml:"t"`
			Runs []struct {
				T string `xml:"t"`
			} `xml:"r"`
		} `xml:"si"`
	}
	if err := xml.Unmarshal(data, &sst); err != nil {
		return nil
	}
	out := make([]string, len(sst.Items))
	for i, si := range sst.Items {
		if si.T != "" || len(si.Runs) == 0 {
			out[i] = si.T
			continue
		}
		var b strings.Builder
		for _, r := range si.Runs {
			b.WriteString(r.T)
		}
		out[i] = b.String()
	}
	return out
}

// sheetRows streams worksheet rows as string records. Cells absent from
// the XML come back empty so columns keep their positions.
type sheetRows struct {
	dec    *xml.Decoder
	shared []string
}

type sheetCell struct {
	Ref    string `xml:"r,attr"`
	Type   string `xml:"t,attr"`
	Value  string `xml:"v"`
	Inline string `xml:"is>t"`
}

func (r *sheetRows) Next() ([]string, error) {
	for {
		tok, err := r.dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read worksheet: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "row" {
			continue
		}
		var row struct {
			Cells []sheetCell `xml:"c"`
		}
		if err := r.dec.DecodeElement(&row, &se); err != nil {
			return nil, fmt.Errorf("read worksheet row: %w", err)
		}
		var rec []string
		for i, c := range row.Cells {
			idx := i
			if c.Ref != "" {
				idx = colIndexFromRef(c.Ref)
			}
			for len(rec) <= idx {
				rec = append(rec, "")
			}
			rec[idx] = r.cellText(c)
		}
		return rec, nil
	}
}

func (r *sheetRows) cellText(c sheetCell) string {
	switch c.Type {
	case "s":
		i, err := strconv.Atoi(strings.TrimSpace(c.Value))
		if err != nil || i < 0 || i >= len(r.shared) {
			return ""
		}
		return r.shared[i]
	case "inlineStr":
		return c.Inline
	default:
		return c.Value
	}
}

// colIndexFromRef maps a cell reference such as "C12" to column 2.
func colIndexFromRef(ref string) int {
	idx := 0
	for i := 0; i < len(ref); i++ {
		c := ref[i]
		switch {
		case c >= 'A' && c <= 'Z':
			idx = idx*26 + int(c-'A'+1)
		case c >= 'a' && c <= 'z':
			idx = idx*26 + int(c-'a'+1)
		default:
			return idx - 1
		}
	}
	return idx - 1
}
