package palette

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"juggle/internal/model"
)

func TestForKnownCategories(t *testing.T) {
	assert.Equal(t, "mint", For(model.CategoryPersonal).Name)
	assert.Equal(t, "purple", For(model.CategoryInterviews).Name)
	assert.Equal(t, "orange", For(model.CategoryHackathons).Name)
	assert.Equal(t, "green", For(model.CategoryTechEvents).Name)
	assert.Equal(t, "pink", For(model.CategoryCultural).Name)
}

func TestForUnknownFallsBack(t *testing.T) {
	assert.Equal(t, Default, For("Gardening"))
	assert.Equal(t, Default, For(""))
}

func TestTableOrder(t *testing.T) {
	table := Table()
	assert.Len(t, table, 5)
	for i, e := range table {
		assert.Equal(t, model.Categories[i], e.Category)
		assert.NotEqual(t, Default, e.Color)
	}
}
