package treeshake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImportStatementBytes(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want int
	}{
		{
			name: "single leading import",
			out:  `import"react";var a=1;`,
			want: len(`import"react";`),
		},
		{
			name: "several imports",
			out:  `import a from"a";import{b as c}from"b";console.log(a,c);`,
			want: len(`import a from"a";`) + len(`import{b as c}from"b";`),
		},
		{
			name: "import after code",
			out:  `var c=Object.defineProperty;var e={};l(e,x);import*as x from"re";console.log(2);`,
			want: len(`import*as x from"re";`),
		},
		{
			name: "import attributes",
			out:  `import o from"./x.json"with{type:"json"};console.log(o);`,
			want: len(`import o from"./x.json"with{type:"json"};`),
		},
		{
			name: "imports on separate lines",
			out:  "import\"a\";\nimport\"b\";\nconsole.log(1);",
			want: len(`import"a";`) + len(`import"b";`),
		},
		{
			name: "no imports",
			out:  `console.log("import");var reimport=1;`,
			want: 0,
		},
		{
			name: "dynamic import and import.meta",
			out:  `import("x").then(f);console.log(import.meta.url);`,
			want: 0,
		},
		{
			name: "import inside a string literal",
			out:  `var s="import\"x\"";`,
			want: 0,
		},
		{
			name: "empty output",
			out:  ``,
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, importStatementBytes(tt.out))
		})
	}
}
