package testdata

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v7"
)

func RandomCompany() string {
	return gofakeit.Company()
}

func RandomDescription() string {
	return gofakeit.Sentence(10)
}

func RandomPlaybookName() string {
	return fmt.Sprintf("%s %s", gofakeit.Verb(), gofakeit.Noun())
}

// RandomControlIDs returns n compliance control ids in the NIST style, e.g. AC-2
func RandomControlIDs(n int) []string {
	families := []string{"AC", "AU", "CM", "IA", "IR", "SC", "SI"}
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s-%d", gofakeit.RandomString(families), gofakeit.Number(1, 20))
	}
	return ids
}
