// Package snapshot persists chunk size records and compares them across runs.
package snapshot

// Record holds the measured sizes of one chunk, in bytes.
type Record struct {
	Bundled    int         `json:"bundled" yaml:"bundled"`
	Minified   int         `json:"minified" yaml:"minified"`
	Gzipped    int         `json:"gzipped" yaml:"gzipped"`
	Treeshaken *Treeshaken `json:"treeshaked,omitempty" yaml:"treeshaked,omitempty"`
}

// Treeshaken holds the results of the two tree-shaking engines.
// Only the module engine separates import statements from logic.
type Treeshaken struct {
	ESM ModuleSize `json:"esm" yaml:"esm"`
	CJS BundleSize `json:"cjs" yaml:"cjs"`
}

// ModuleSize is the module engine result.
type ModuleSize struct {
	Code             int `json:"code" yaml:"code"`
	ImportStatements int `json:"import_statements" yaml:"import_statements"`
}

// BundleSize is the bundle engine result.
type BundleSize struct {
	Code int `json:"code" yaml:"code"`
}

// Snapshot maps chunk names to their recorded sizes.
type Snapshot map[string]Record

// Leaf is a single numeric value of a Record addressed by its JSON path.
type Leaf struct {
	Path  string
	Value int
}

// Leaves returns every numeric leaf of r in a fixed order. A nil
// Treeshaken reads as zeros so records of any format share one shape.
func (r Record) Leaves() []Leaf {
	var ts Treeshaken
	if r.Treeshaken != nil {
		ts = *r.Treeshaken
	}
	return []Leaf{
		{Path: "bundled", Value: r.Bundled},
		{Path: "minified", Value: r.Minified},
		{Path: "gzipped", Value: r.Gzipped},
		{Path: "treeshaked.esm.code", Value: ts.ESM.Code},
		{Path: "treeshaked.esm.import_statements", Value: ts.ESM.ImportStatements},
		{Path: "treeshaked.cjs.code", Value: ts.CJS.Code},
	}
}
