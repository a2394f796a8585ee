package queries

import (
	"embed"
	"fmt"
)

//go:embed insert/*.sql select/*.sql update/*.sql delete/*.sql
var Files embed.FS

// ^^^ the go:embed directive is used to embed the files in the queries package
// meaning on compile time it will convert the files to binary data and embed it in the queries package

type InsertQueries struct {
	InstrumentMetadata string
	IndexRun           string
}

type SelectQueries struct {
	IndexRunByKey               string
	InstrumentMetadataBySymbols string
	PriceObservations           string
}

type UpdateQueries struct {
	IndexRun string
}

type DeleteQueries struct {
	PriceObservations string
}

type QueryHelperStruct struct {
	Insert InsertQueries
	Select SelectQueries
	Update UpdateQueries
	Delete DeleteQueries
}

var QueryHelper = QueryHelperStruct{
	Insert: InsertQueries{
		InstrumentMetadata: "insert/instrument_metadata.sql",
		IndexRun:           "insert/index_run.sql",
	},
	Select: SelectQueries{
		IndexRunByKey:               "select/index_run_by_key.sql",
		InstrumentMetadataBySymbols: "select/instrument_metadata_by_symbols.sql",
		PriceObservations:           "select/price_observations.sql",
	},
	Update: UpdateQueries{
		IndexRun: "update/index_run.sql",
	},
	Delete: DeleteQueries{
		PriceObservations: "delete/price_observations.sql",
	},
}

func Get(path string) string {
	content, err := Files.ReadFile(path)
	if err != nil {
		panic(fmt.Errorf("error reading query file: %w", err))
	}

	return string(content)
}
