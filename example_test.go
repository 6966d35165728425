package rowgo_test

import (
	"encoding/hex"
	"fmt"
	"log"

	"github.com/hupe1980/rowgo"
	"github.com/hupe1980/rowgo/schema"
)

// Example demonstrates populating a partial row and deriving its
// order-preserving key.
func Example() {
	s, err := schema.New([]schema.Column{
		{Name: "id", Type: schema.TypeInt32},
		{Name: "name", Type: schema.TypeString, Nullable: true},
		{Name: "score", Type: schema.TypeDouble},
	}, 1) // the first column is the primary key
	if err != nil {
		log.Fatal(err)
	}

	row := rowgo.New(s)
	if err := row.SetInt32("id", 42); err != nil {
		log.Fatal(err)
	}
	if err := row.SetStringCopy("name", []byte("abc")); err != nil {
		log.Fatal(err)
	}
	// score stays unset: the server-side default applies.

	fmt.Println(row)

	key, err := row.EncodeRowKey()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(hex.EncodeToString(key))
	// Output:
	// int32 id=42, string name="abc", double score=<unset>
	// 8000002a
}

// Example_null shows the difference between an explicit null and an
// unset column.
func Example_null() {
	s, err := schema.New([]schema.Column{
		{Name: "id", Type: schema.TypeInt64},
		{Name: "note", Type: schema.TypeString, Nullable: true},
	}, 1)
	if err != nil {
		log.Fatal(err)
	}

	row := rowgo.New(s)
	_ = row.SetInt64("id", 1)

	// Unset: the server default applies on insert.
	fmt.Println(row.IsColumnSet("note"), row.IsNull("note"))

	// Explicit null overrides the default.
	_ = row.SetNull("note")
	fmt.Println(row.IsColumnSet("note"), row.IsNull("note"))
	// Output:
	// false false
	// true true
}
