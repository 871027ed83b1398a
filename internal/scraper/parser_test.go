package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const filterPage = `<html><body>
<form>
  <select id="selCampus" name="selCampus">
    <option value="0">-- Select Campus --</option>
    <option value="">   </option>
    <option value="46"> Abington </option>
    <option value="12">Altoona</option>
    <option value="x1">Broken</option>
  </select>
  <select id="selMeal" name="selMeal">
    <option>Breakfast</option>
    <option>  Lunch </option>
    <option>   </option>
    <option>Dinner</option>
  </select>
</form>
</body></html>`

func TestParseCampusOptions(t *testing.T) {
	campuses := ParseCampusOptions(filterPage)

	assert.Equal(t, map[uint]string{46: "Abington", 12: "Altoona"}, campuses)
}

func TestParseCampusOptions_NoPicker(t *testing.T) {
	assert.Empty(t, ParseCampusOptions("<html><body><p>closed</p></body></html>"))
}

func TestParseMealOptions(t *testing.T) {
	meals := ParseMealOptions(filterPage)

	assert.Equal(t, []string{"Breakfast", "Lunch", "Dinner"}, meals)
}

func TestParseMealOptions_NoPicker(t *testing.T) {
	meals := ParseMealOptions("")
	assert.NotNil(t, meals)
	assert.Empty(t, meals)
}

func TestParseMenuItems(t *testing.T) {
	page := `
	<h2 class='category-header'>Entree</h2>
	<div class='menu-items'>
		<a aria-label='Pasta'></a>
		<img aria-label='Vegan' />
		<img aria-label='Gluten Free' />
	</div>
	<h2 class='category-header'>Dessert</h2>
	<div class='menu-items'>
		<a aria-label='Cake'></a>
	</div>`

	items := ParseMenuItems(page)

	require.Len(t, items, 2)
	assert.Equal(t, "Entree", items[0].Category)
	assert.Equal(t, "Pasta", items[0].Value)
	assert.Equal(t, []string{"Vegan", "Gluten Free"}, items[0].Tags)
	assert.Equal(t, "Dessert", items[1].Category)
	assert.Equal(t, "Cake", items[1].Value)
	assert.Empty(t, items[1].Tags)
}

func TestParseMenuItems_NestedAndUncategorized(t *testing.T) {
	page := `
	<div class="wrapper">
		<div class="menu-items extra"><span><a aria-label=" Soup of the Day "></a></span></div>
		<section>
			<h2 class="category-header big"> Grill </h2>
			<div class="menu-items"><a aria-label="Burger"></a><img aria-label=" "><img aria-label="Halal"></div>
		</section>
	</div>`

	items := ParseMenuItems(page)

	require.Len(t, items, 2)
	assert.Equal(t, "", items[0].Category)
	assert.Equal(t, "Soup of the Day", items[0].Value)
	assert.Equal(t, "Grill", items[1].Category)
	assert.Equal(t, []string{"Halal"}, items[1].Tags)
}
