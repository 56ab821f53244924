package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDish(t *testing.T, dir, name, price string) {
	t.Helper()
	folder := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(folder, 0o755))
	files := map[string]string{
		"price.txt":         price + "\n",
		"description.txt":   "Описание " + name + "\n",
		"what_you_get.txt":  "Состав " + name + "\n",
		"what_you_need.txt": "Понадобится для " + name + "\n",
		"photo.jpg":         "jpeg-bytes",
	}
	for file, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(folder, file), []byte(body), 0o644))
	}
}

func TestLoadBuildsLookupAndLayout(t *testing.T) {
	dir := t.TempDir()
	writeDish(t, dir, "Хуммус", "150.00")
	writeDish(t, dir, "Паста с сыром", "99.99")

	cat, err := Load(dir, Layout{
		Sections: []SectionLayout{
			{Name: "Необычное", Dishes: []string{"Хуммус"}},
			{Name: "Easy", Dishes: []string{"Паста с сыром"}},
		},
		Week: []string{"Хуммус"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, cat.Len())

	dish, ok := cat.Dish("Хуммус")
	require.True(t, ok)
	assert.Equal(t, "Хуммус", dish.Name)
	assert.Equal(t, "150.00", dish.Price.StringFixed(2))
	assert.Equal(t, "Описание Хуммус", dish.Description)
	assert.Equal(t, "Состав Хуммус", dish.WhatYouGet)
	assert.Equal(t, "Понадобится для Хуммус", dish.WhatYouNeed)
	assert.Equal(t, filepath.Join(dir, "Хуммус", "photo.jpg"), dish.PhotoPath)

	price, ok := cat.Price("Паста с сыром")
	require.True(t, ok)
	assert.Equal(t, "99.99", price.StringFixed(2))

	sections := cat.Sections()
	require.Len(t, sections, 2)
	assert.Equal(t, "Необычное", sections[0].Name)
	require.Len(t, sections[0].Dishes, 1)
	assert.Equal(t, "Хуммус", sections[0].Dishes[0].ID)

	sec, ok := cat.Section("Easy")
	require.True(t, ok)
	assert.Equal(t, "Паста с сыром", sec.Dishes[0].ID)

	week := cat.Week()
	require.Len(t, week, 1)
	assert.Equal(t, "Хуммус", week[0].ID)
}

func TestLoadUnknownDishLookups(t *testing.T) {
	dir := t.TempDir()
	writeDish(t, dir, "Хуммус", "150.00")

	cat, err := Load(dir, Layout{})
	require.NoError(t, err)

	_, ok := cat.Dish("призрак")
	assert.False(t, ok)
	_, ok = cat.Price("призрак")
	assert.False(t, ok)
	_, ok = cat.Section("нет такой")
	assert.False(t, ok)
}

func TestLoadFailsOnMissingAsset(t *testing.T) {
	dir := t.TempDir()
	writeDish(t, dir, "Хуммус", "150.00")
	require.NoError(t, os.Remove(filepath.Join(dir, "Хуммус", "what_you_need.txt")))

	_, err := Load(dir, Layout{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "what_you_need.txt")
}

func TestLoadFailsOnMissingPhoto(t *testing.T) {
	dir := t.TempDir()
	writeDish(t, dir, "Хуммус", "150.00")
	require.NoError(t, os.Remove(filepath.Join(dir, "Хуммус", "photo.jpg")))

	_, err := Load(dir, Layout{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "photo.jpg")
}

func TestLoadFailsOnBadPrice(t *testing.T) {
	cases := map[string]string{
		"non-numeric": "сто пятьдесят",
		"negative":    "-5.00",
	}
	for name, price := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeDish(t, dir, "Хуммус", price)

			_, err := Load(dir, Layout{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "price")
		})
	}
}

func TestLoadFailsOnUnknownSectionReference(t *testing.T) {
	dir := t.TempDir()
	writeDish(t, dir, "Хуммус", "150.00")

	_, err := Load(dir, Layout{
		Sections: []SectionLayout{{Name: "Необычное", Dishes: []string{"Вареники"}}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Вареники")
}

func TestLoadFailsOnUnknownWeeklyReference(t *testing.T) {
	dir := t.TempDir()
	writeDish(t, dir, "Хуммус", "150.00")

	_, err := Load(dir, Layout{Week: []string{"Вареники"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Вареники")
}

func TestLoadFailsOnEmptyDir(t *testing.T) {
	_, err := Load(t.TempDir(), Layout{})
	require.Error(t, err)
}

func TestLoadIgnoresStrayFiles(t *testing.T) {
	dir := t.TempDir()
	writeDish(t, dir, "Хуммус", "150.00")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("notes"), 0o644))

	cat, err := Load(dir, Layout{})
	require.NoError(t, err)
	assert.Equal(t, 1, cat.Len())
}
