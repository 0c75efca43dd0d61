package generation

import "github.com/mcoot/realmkeeper/internal/dependencies/random"

// Tables are read-only after package initialisation.

type entry[T any] struct {
	Value  T
	Weight int
}

// weighted is a table drawn from in proportion to each entry's weight
type weighted[T any] []entry[T]

func (w weighted[T]) pick(r random.Random) T {
	total := 0
	for _, e := range w {
		total += e.Weight
	}
	n := r.Intn(total)
	for _, e := range w {
		if n < e.Weight {
			return e.Value
		}
		n -= e.Weight
	}
	return w[len(w)-1].Value
}

func (w weighted[T]) values() []T {
	out := make([]T, len(w))
	for i, e := range w {
		out[i] = e.Value
	}
	return out
}

func uniform[T any](r random.Random, values []T) T {
	return values[r.Intn(len(values))]
}

var firstNames = []string{
	"Aldric", "Bryn", "Caelan", "Dara", "Edric", "Fenna", "Gareth", "Hild",
	"Isolde", "Jorund", "Kestrel", "Liora", "Maelis", "Nyra", "Osric", "Perrin",
	"Quenby", "Rowan", "Sigrun", "Tamsin", "Ulric", "Vesna", "Wynn", "Yara",
	"Alaric", "Brienne", "Cedric", "Elowen", "Thorne", "Mirelle",
}

var lastNames = []string{
	"Ashford", "Blackwood", "Copperfield", "Dunmore", "Eastwick", "Fairweather",
	"Greymane", "Hollowell", "Ironside", "Kettleburn", "Longbarrow", "Marsh",
	"Northcott", "Oakheart", "Pennywhistle", "Ravenscar", "Stonebridge",
	"Thistlewood", "Underhill", "Whitlock",
}

var genders = weighted[string]{
	{"male", 48},
	{"female", 48},
	{"other", 4},
}

var healthStates = weighted[string]{
	{"healthy", 60},
	{"injured", 12},
	{"sick", 15},
	{"frail", 10},
	{"dying", 3},
}

type occupation struct {
	Name      string
	MinWealth int
	MaxWealth int
}

var occupations = weighted[occupation]{
	{occupation{"farmer", 5, 40}, 30},
	{occupation{"labourer", 2, 25}, 15},
	{occupation{"blacksmith", 30, 120}, 6},
	{occupation{"carpenter", 20, 90}, 6},
	{occupation{"weaver", 15, 70}, 6},
	{occupation{"baker", 15, 70}, 6},
	{occupation{"merchant", 80, 600}, 5},
	{occupation{"innkeeper", 50, 300}, 4},
	{occupation{"fisher", 5, 45}, 6},
	{occupation{"miner", 10, 60}, 5},
	{occupation{"priest", 20, 150}, 3},
	{occupation{"scribe", 30, 140}, 3},
	{occupation{"healer", 30, 160}, 2},
	{occupation{"noble", 500, 5000}, 1},
	{occupation{"beggar", 0, 3}, 2},
}

var slaveOrigins = weighted[string]{
	{"war captive", 40},
	{"debtor", 30},
	{"born into servitude", 20},
	{"convict", 10},
}

var slaveAssignments = []string{
	"fields", "mines", "household", "quarry", "galley", "construction", "stables",
}

type livestockKind struct {
	Type        string
	Group       string
	MinQuantity int
	MaxQuantity int
	UnitValue   int
}

var livestockKinds = weighted[livestockKind]{
	{livestockKind{"cattle", "herd", 5, 60, 30}, 20},
	{livestockKind{"sheep", "flock", 10, 200, 8}, 25},
	{livestockKind{"goats", "herd", 5, 80, 6}, 15},
	{livestockKind{"pigs", "drove", 4, 50, 10}, 15},
	{livestockKind{"chickens", "flock", 20, 300, 1}, 15},
	{livestockKind{"horses", "string", 2, 20, 120}, 7},
	{livestockKind{"oxen", "yoke", 2, 12, 60}, 3},
}

var ranks = weighted[string]{
	{"recruit", 30},
	{"soldier", 35},
	{"corporal", 15},
	{"sergeant", 10},
	{"lieutenant", 6},
	{"captain", 3},
	{"commander", 1},
}

var unitTypes = weighted[string]{
	{"infantry", 45},
	{"archer", 25},
	{"cavalry", 12},
	{"pikeman", 12},
	{"siege engineer", 6},
}

type crimeKind struct {
	Type        string
	Severity    string
	Punishments []string
}

var crimeKinds = weighted[crimeKind]{
	{crimeKind{"theft", "minor", []string{"fine", "stocks", "restitution"}}, 30},
	{crimeKind{"public drunkenness", "minor", []string{"fine", "stocks"}}, 20},
	{crimeKind{"smuggling", "moderate", []string{"fine", "imprisonment", "confiscation"}}, 12},
	{crimeKind{"assault", "moderate", []string{"imprisonment", "flogging", "fine"}}, 15},
	{crimeKind{"poaching", "moderate", []string{"fine", "flogging"}}, 10},
	{crimeKind{"arson", "severe", []string{"imprisonment", "exile"}}, 5},
	{crimeKind{"murder", "severe", []string{"execution", "exile", "imprisonment"}}, 5},
	{crimeKind{"treason", "severe", []string{"execution", "exile"}}, 3},
}

var crimeStatuses = weighted[string]{
	{"reported", 25},
	{"investigating", 25},
	{"resolved", 35},
	{"unsolved", 15},
}

var tributeResources = weighted[string]{
	{"gold", 20},
	{"silver", 20},
	{"grain", 25},
	{"timber", 12},
	{"iron", 10},
	{"wool", 8},
	{"wine", 5},
}

var tributePayers = []string{
	"Merchants' Guild", "Millers' Guild", "Hill Clans", "River Villages",
	"Abbey of the Dawn", "Fishing Hamlets", "Miners' Lodge", "Border Barons",
}

var tributeStatuses = weighted[string]{
	{"pending", 45},
	{"paid", 40},
	{"overdue", 12},
	{"waived", 3},
}
