// Command rowkey encodes partition split keys from JSON rows.
//
// It loads a schema definition from a JSON file, reads one JSON object
// per line from stdin (column name to value), and prints the
// order-preserving encoded row key for each line as hex.
//
//	rowkey -schema table.json < rows.jsonl
//
// The schema file holds a schema.Definition:
//
//	{"key_columns": 1, "columns": [
//	    {"name": "id", "type": "int32"},
//	    {"name": "name", "type": "string", "nullable": true}
//	]}
package main

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hupe1980/rowgo"
	"github.com/hupe1980/rowgo/schema"
)

func main() {
	schemaPath := flag.String("schema", "", "path to the JSON schema definition")
	verbose := flag.Bool("verbose", false, "log each row's diagnostic rendering")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if *schemaPath == "" {
		log.Fatal().Msg("missing -schema")
	}

	data, err := os.ReadFile(*schemaPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *schemaPath).Msg("read schema")
	}
	s, err := schema.ParseJSON(data)
	if err != nil {
		log.Fatal().Err(err).Str("path", *schemaPath).Msg("parse schema")
	}
	log.Debug().Str("schema", s.String()).Msg("schema loaded")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		row := rowgo.New(s)
		if err := populateRow(row, line); err != nil {
			log.Error().Err(err).Int("line", lineNo).Msg("bad row")
			continue
		}
		log.Debug().Int("line", lineNo).Str("row", row.String()).Msg("row parsed")

		key, err := row.EncodeRowKey()
		if err != nil {
			log.Error().Err(err).Int("line", lineNo).Msg("encode key")
			continue
		}
		fmt.Fprintln(out, hex.EncodeToString(key))
	}
	if err := scanner.Err(); err != nil {
		log.Fatal().Err(err).Msg("read stdin")
	}
}

// populateRow sets each JSON field on the row according to the declared
// column type. JSON null becomes an explicit null; absent columns stay
// unset.
func populateRow(row *rowgo.PartialRow, line []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return err
	}

	for name, raw := range fields {
		c, err := row.Schema().ColumnByName(name)
		if err != nil {
			return err
		}
		if string(raw) == "null" {
			if err := row.SetNull(name); err != nil {
				return err
			}
			continue
		}
		if err := setTyped(row, c, raw); err != nil {
			return fmt.Errorf("column %q: %w", name, err)
		}
	}
	return nil
}

func setTyped(row *rowgo.PartialRow, c *schema.Column, raw json.RawMessage) error {
	idx := c.Index()
	switch c.Type {
	case schema.TypeBool:
		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		return row.SetBoolAt(idx, v)
	case schema.TypeInt8:
		var v int8
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		return row.SetInt8At(idx, v)
	case schema.TypeInt16:
		var v int16
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		return row.SetInt16At(idx, v)
	case schema.TypeInt32:
		var v int32
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		return row.SetInt32At(idx, v)
	case schema.TypeInt64:
		var v int64
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		return row.SetInt64At(idx, v)
	case schema.TypeFloat:
		var v float32
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		return row.SetFloatAt(idx, v)
	case schema.TypeDouble:
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		return row.SetDoubleAt(idx, v)
	case schema.TypeString:
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		return row.SetStringCopyAt(idx, []byte(v))
	default:
		return fmt.Errorf("unsupported type %s", c.Type)
	}
}
