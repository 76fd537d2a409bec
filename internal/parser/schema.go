package parser

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource string

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	batchDef   cue.Value
	schemaErr  error
)

// loadSchema compiles the embedded schema once per process.
func loadSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(schemaSource, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile batch schema: %w", err)
			return
		}
		batchDef = v.LookupPath(cue.ParsePath("#Batch"))
		if !batchDef.Exists() {
			schemaErr = fmt.Errorf("batch schema has no #Batch definition")
		}
	})
	return schemaCtx, batchDef, schemaErr
}

// ValidateJSON checks a JSON document against the batch schema.
// Returns the sorted list of violations; empty means valid.
func ValidateJSON(data []byte, filename string) ([]string, error) {
	ctx, batch, err := loadSchema()
	if err != nil {
		return nil, err
	}

	// The CUE context is not safe for concurrent use.
	schemaMu.Lock()
	defer schemaMu.Unlock()

	doc := ctx.CompileBytes(data, cue.Filename(filename))
	if err := doc.Err(); err != nil {
		return violations(err), nil
	}

	unified := batch.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return violations(err), nil
	}
	return nil, nil
}

var schemaMu sync.Mutex

func violations(err error) []string {
	var out []string
	for _, e := range cueerrors.Errors(err) {
		out = append(out, e.Error())
	}
	if len(out) == 0 {
		out = append(out, err.Error())
	}
	sort.Strings(out)
	return out
}
