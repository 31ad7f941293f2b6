// Package fixgen generates deterministic test fixtures from JSON Schema and
// OpenAPI documents, and measures how much of the schema they cover.
//
// The root package keeps the public entry points; generation lives in
// generator/, coverage tracking and planning in coverage/, document loading
// in loader/ and the validation oracle in validate/.
//
// Typical usage:
//
//	doc, err := loader.LoadFile("pet.schema.json", loader.Options{})
//	eng := fixgen.New(fixgen.WithLogger(logger))
//	batch, err := eng.GenerateDocument(ctx, doc, fixgen.Options{
//		Seed:     42,
//		Coverage: fixgen.CoverageOptions{Mode: fixgen.CoverageGuided},
//		Generate: fixgen.GenerateOptions{Count: 20},
//	})
//
// Identical schema, seed and options produce identical instances and, modulo
// run timing, byte-identical coverage reports.
package fixgen
