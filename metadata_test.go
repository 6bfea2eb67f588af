package geoarrow

import (
	"strings"
	"testing"
)

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name     string
		metadata string
		want     Metadata
	}{
		{"empty string", "", Metadata{Edges: EdgesPlanar, CrsType: CrsNone}},
		{"empty object", "{}", Metadata{Edges: EdgesPlanar, CrsType: CrsNone}},
		{"spherical edges", `{"edges":"spherical"}`,
			Metadata{Edges: EdgesSpherical, CrsType: CrsNone}},
		{"planar edges", `{"edges":"planar"}`,
			Metadata{Edges: EdgesPlanar, CrsType: CrsNone}},
		{"karney edges", `{"edges":"karney"}`,
			Metadata{Edges: EdgesKarney, CrsType: CrsNone}},
		{"string crs", `{"crs":"OGC:CRS84"}`,
			Metadata{CrsType: CrsUnknown, Crs: `"OGC:CRS84"`}},
		{"crs with explicit type", `{"crs":"EPSG:4326","crs_type":"authority_code"}`,
			Metadata{CrsType: CrsAuthorityCode, Crs: `"EPSG:4326"`}},
		{"object crs", `{"crs":{"id":{"authority":"EPSG","code":4326}}}`,
			Metadata{CrsType: CrsUnknown, Crs: `{"id":{"authority":"EPSG","code":4326}}`}},
		{"projjson crs type", `{"crs_type":"projjson","crs":{"a":1}}`,
			Metadata{CrsType: CrsProjJSON, Crs: `{"a":1}`}},
		{"srid crs type", `{"crs_type":"srid","crs":"4326"}`,
			Metadata{CrsType: CrsSRID, Crs: `"4326"`}},
		{"wkt2 crs type", `{"crs_type":"wkt2:2019","crs":"GEOGCRS[...]"}`,
			Metadata{CrsType: CrsWKT2_2019, Crs: `"GEOGCRS[...]"`}},
		{"unrecognized crs type", `{"crs_type":"something_else","crs":"x"}`,
			Metadata{CrsType: CrsUnknown, Crs: `"x"`}},
		{"null crs clears", `{"crs":null}`, Metadata{CrsType: CrsNone}},
		{"crs_type without crs normalizes", `{"crs_type":"projjson"}`,
			Metadata{CrsType: CrsNone}},
		{"unknown keys ignored", `{"something":{"nested":["deep",{"deeper":1}]},"edges":"spherical"}`,
			Metadata{Edges: EdgesSpherical, CrsType: CrsNone}},
		{"escaped quotes in strings", `{"crs":"with \"quotes\""}`,
			Metadata{CrsType: CrsUnknown, Crs: `"with \"quotes\""`}},
		{"whitespace tolerated", " {\n\t\"edges\" : \"spherical\"\n} ",
			Metadata{Edges: EdgesSpherical, CrsType: CrsNone}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMetadata(tt.metadata)
			if err != nil {
				t.Fatalf("ParseMetadata(%q) failed: %v", tt.metadata, err)
			}
			if got != tt.want {
				t.Errorf("ParseMetadata(%q) = %+v, want %+v", tt.metadata, got, tt.want)
			}
		})
	}
}

func TestParseMetadataErrors(t *testing.T) {
	tests := []struct {
		name     string
		metadata string
	}{
		{"non-object root", `["a"]`},
		{"bare value", `17`},
		{"trailing garbage", `{} extra`},
		{"unterminated object", `{"edges":"spherical"`},
		{"numeric value", `{"edges":12}`},
		{"bad edges", `{"edges":"wavy"}`},
		{"numeric crs", `{"crs":1234}`},
		{"non-string crs_type", `{"crs_type":{"a":1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseMetadata(tt.metadata); err == nil {
				t.Errorf("ParseMetadata(%q) succeeded, want error", tt.metadata)
			}
		})
	}
}

func TestMetadataString(t *testing.T) {
	tests := []struct {
		name string
		meta Metadata
		want string
	}{
		{"default", Metadata{}, "{}"},
		{"edges only", Metadata{Edges: EdgesSpherical}, `{"edges":"spherical"}`},
		{"crs unknown type", Metadata{CrsType: CrsUnknown, Crs: `"OGC:CRS84"`},
			`{"crs":"OGC:CRS84"}`},
		{"crs with type", Metadata{CrsType: CrsProjJSON, Crs: `{"a":1}`},
			`{"crs_type":"projjson","crs":{"a":1}}`},
		{"everything", Metadata{Edges: EdgesSpherical, CrsType: CrsSRID, Crs: `"4326"`},
			`{"edges":"spherical","crs_type":"srid","crs":"4326"}`},
		{"bare crs is escaped", Metadata{CrsType: CrsAuthorityCode, Crs: `EPSG:4326`},
			`{"crs_type":"authority_code","crs":"EPSG:4326"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.meta.String(); got != tt.want {
				t.Errorf("String() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	meta := Metadata{Edges: EdgesSpherical, CrsType: CrsProjJSON, Crs: `{"id":{"authority":"EPSG","code":4326}}`}
	parsed, err := ParseMetadata(meta.String())
	if err != nil {
		t.Fatalf("ParseMetadata failed: %v", err)
	}
	if parsed != meta {
		t.Errorf("round trip = %+v, want %+v", parsed, meta)
	}
}

func TestUnescapeCrs(t *testing.T) {
	tests := []struct {
		crs  string
		want string
	}{
		{"", ""},
		{`{"a":1}`, `{"a":1}`},
		{`"OGC:CRS84"`, "OGC:CRS84"},
		{`"with \"quotes\""`, `with "quotes"`},
	}
	for _, tt := range tests {
		if got := UnescapeCrs(tt.crs); got != tt.want {
			t.Errorf("UnescapeCrs(%q) = %q, want %q", tt.crs, got, tt.want)
		}
	}
}

func TestMetadataSetLonLat(t *testing.T) {
	var meta Metadata
	meta.SetLonLat()

	if meta.CrsType != CrsProjJSON {
		t.Fatalf("CrsType = %v, want CrsProjJSON", meta.CrsType)
	}
	if !strings.Contains(meta.Crs, `"WGS 84 (CRS84)"`) {
		t.Errorf("Crs does not mention WGS 84 (CRS84)")
	}

	id, ok := meta.CrsID()
	if !ok {
		t.Fatal("CrsID() not found")
	}
	if id.Authority != "OGC" {
		t.Errorf("authority = %q, want OGC", id.Authority)
	}
}
