package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func graphFixture() *metafile {
	return &metafile{
		Inputs: map[string]metaInput{
			"src/index.ts": {
				Bytes: 100,
				Imports: []metaImport{
					{Path: "src/util.ts"},
					{Path: "node_modules/wrapper/index.js"},
					{Path: "react", External: true},
				},
			},
			"src/util.ts": {
				Bytes: 50,
				Imports: []metaImport{
					{Path: "node_modules/left-pad/index.js"},
				},
			},
			"node_modules/wrapper/index.js": {
				Bytes: 30,
				Imports: []metaImport{
					{Path: "node_modules/wrapper/node_modules/left-pad/index.js"},
				},
			},
			"node_modules/left-pad/index.js":                      {Bytes: 20},
			"node_modules/wrapper/node_modules/left-pad/index.js": {Bytes: 20},
			"src/orphan.ts": {Bytes: 10},
		},
	}
}

func buildGraphFixture(meta *metafile) *moduleGraph {
	_, inputs := summarize(meta, 10)

	return buildGraph(meta, []string{"src/index.ts"}, inputs)
}

func TestChainTo_ShortestPath(t *testing.T) {
	mg := buildGraphFixture(graphFixture())

	assert.Equal(t, []string{
		"src/index.ts",
		"src/util.ts",
		"node_modules/left-pad/index.js",
	}, mg.chainTo("node_modules/left-pad"))

	assert.Equal(t, []string{
		"src/index.ts",
		"node_modules/wrapper/index.js",
		"node_modules/wrapper/node_modules/left-pad/index.js",
	}, mg.chainTo("node_modules/wrapper/node_modules/left-pad"))
}

func TestChainTo_UnreachableCopy(t *testing.T) {
	mg := buildGraphFixture(graphFixture())

	assert.Nil(t, mg.chainTo("node_modules/ghost"))
}

func TestBuildGraph_MissingEntryFile(t *testing.T) {
	meta := graphFixture()
	_, inputs := summarize(meta, 10)

	mg := buildGraph(meta, []string{"src/other.ts"}, inputs)

	assert.Empty(t, mg.roots)
	assert.Nil(t, mg.chainTo("node_modules/left-pad"))
}

func TestAttachChains(t *testing.T) {
	mg := buildGraphFixture(graphFixture())

	duplicates := []Duplicate{
		{
			Package: "left-pad",
			Paths:   []string{"node_modules/left-pad", "node_modules/wrapper/node_modules/left-pad"},
			Entries: []string{"index"},
		},
	}

	attachChains(duplicates, map[string]*moduleGraph{"index": mg})

	assert.Len(t, duplicates[0].Chains, 2)
	assert.NotEmpty(t, duplicates[0].Chains[0])
	assert.NotEmpty(t, duplicates[0].Chains[1])
}
