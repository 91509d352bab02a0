package shared

import (
	"testing"

	"github.com/cevaris/ordered_map"
	"github.com/sirupsen/logrus"
)

func TestPostgresSqlUpsert(t *testing.T) {
	log := logrus.New()
	dml := &DmlGeneratorPostgres{}
	o := dml.NewUpsertGenerator(newTestGeneratorConfig(log))
	o.InitBatch(5)
	for _, row := range [][]interface{}{{"1", "2", "x"}, {"2", "3", "y"}} {
		if _, err := o.AddValuesToBatch(row); err != nil {
			t.Fatal(err)
		}
	}
	expected := `insert into "analytics"."orders" ("id","amount","created") values ($1,$2,$3),($4,$5,$6) ` +
		`on conflict ("id") do update set "amount" = excluded."amount", "created" = excluded."created"`
	got := reWhiteSpace.ReplaceAllString(o.GetStatement(), " ")
	if got != expected {
		t.Fatalf("Bad SQL UPSERT generated: expected = '%v'; got = '%v'", expected, got)
	}
}

func TestPostgresSqlUpsertKeyOnly(t *testing.T) {
	omKeys := ordered_map.NewOrderedMap()
	omKeys.Set("code", "code")
	dml := &DmlGeneratorPostgres{}
	o := dml.NewUpsertGenerator(&SqlStatementGeneratorConfig{
		Log:           logrus.New(),
		OutputTable:   "codes",
		TargetKeyCols: omKeys,
		TargetCols:    omKeys,
	})
	o.InitBatch(1)
	if _, err := o.AddValuesToBatch([]interface{}{"A"}); err != nil {
		t.Fatal(err)
	}
	expected := `insert into "codes" ("code") values ($1) on conflict ("code") do nothing`
	if got := o.GetStatement(); got != expected {
		t.Fatalf("Bad SQL UPSERT generated: expected = '%v'; got = '%v'", expected, got)
	}
}
