// Package taxonomy defines the fixed Annex II allergen catalog and resolves
// free-form allergen references (tags, labels, keywords, any language the
// catalog knows) to canonical codes.
//
// The catalog is an ordered list so the synonym table is built the same way
// on every process start: on a collision the first-registered entry wins.
package taxonomy

// Code is a canonical allergen identifier from the fixed catalog.
type Code string

const (
	Gluten      Code = "GLUTEN"
	Crustaceans Code = "CRUSTACEANS"
	Egg         Code = "EGG"
	Fish        Code = "FISH"
	Peanut      Code = "PEANUT"
	Soy         Code = "SOY"
	Milk        Code = "MILK"
	TreeNuts    Code = "TREE_NUTS"
	Celery      Code = "CELERY"
	Mustard     Code = "MUSTARD"
	Sesame      Code = "SESAME"
	Sulphites   Code = "SULPHITES"
	Lupin       Code = "LUPIN"
	Molluscs    Code = "MOLLUSCS"
)

// Definition carries the multilingual labels, external-tag aliases and
// keyword list for one allergen category.
type Definition struct {
	Code Code

	// LabelEN and LabelPT are the human-readable category labels.
	LabelEN string
	LabelPT string

	// Tags are namespaced external aliases (e.g. OpenFoodFacts "en:gluten").
	// Both the full tag and the suffix after the namespace separator resolve.
	Tags []string

	// Keywords are ingredient words and phrases that imply the category.
	Keywords []string
}

// catalog is the Annex II allergen set. Order matters: the synonym table is
// built front to back and the first registration of a term wins.
var catalog = []Definition{
	{
		Code:    Gluten,
		LabelEN: "Cereals containing gluten (wheat, rye, barley, oats and derivatives)",
		LabelPT: "Cereais que contêm glúten (trigo, centeio, cevada, aveia e derivados)",
		Tags:    []string{"en:gluten", "pt:gluten"},
		Keywords: []string{
			"gluten", "wheat", "barley", "rye", "oats", "spelt", "durum",
			"kamut", "triticale", "bulgur", "couscous", "semolina", "farro",
			"seitan", "malt",
		},
	},
	{
		Code:    Crustaceans,
		LabelEN: "Crustaceans and products thereof",
		LabelPT: "Crustáceos e produtos à base de crustáceos",
		Tags:    []string{"en:crustaceans", "en:crustacean", "pt:crustaceos", "pt:crustaceo"},
		Keywords: []string{
			"crustacean", "crab", "crabs", "shrimp", "shrimps", "prawn",
			"prawns", "lobster", "lobsters", "crayfish", "langoustine", "krill",
		},
	},
	{
		Code:    Egg,
		LabelEN: "Eggs and products thereof",
		LabelPT: "Ovos e produtos à base de ovo",
		Tags:    []string{"en:egg", "en:eggs", "pt:ovo", "pt:ovos"},
		Keywords: []string{
			"egg", "eggs", "albumen", "albumin", "ovalbumin", "ovomucoid",
			"yolk", "eggwhite", "eggwhites",
		},
	},
	{
		Code:    Fish,
		LabelEN: "Fish and products thereof",
		LabelPT: "Peixe e produtos à base de peixe",
		Tags:    []string{"en:fish", "pt:peixe", "pt:peixes"},
		Keywords: []string{
			"fish", "salmon", "tuna", "cod", "haddock", "pollock", "anchovy",
			"anchovies", "sardine", "sardines", "trout", "mackerel", "herring",
			"tilapia", "snapper", "bass",
		},
	},
	{
		Code:    Peanut,
		LabelEN: "Peanuts and products thereof",
		LabelPT: "Amendoim e produtos à base de amendoim",
		Tags:    []string{"en:peanuts", "en:peanut", "pt:amendoim", "pt:amendoins"},
		Keywords: []string{
			"peanut", "peanuts", "groundnut", "groundnuts", "monkey nut",
			"monkey nuts",
		},
	},
	{
		Code:    Soy,
		LabelEN: "Soybeans and products thereof",
		LabelPT: "Soja e produtos à base de soja",
		Tags:    []string{"en:soybeans", "en:soy", "en:soya", "pt:soja"},
		Keywords: []string{
			"soy", "soya", "soybean", "soybeans", "edamame", "tofu", "tempeh",
			"miso", "shoyu", "tamari", "natto",
		},
	},
	{
		Code:    Milk,
		LabelEN: "Milk and dairy products including lactose",
		LabelPT: "Leite e produtos lácteos, incluindo lactose",
		Tags:    []string{"en:milk", "en:milk-protein", "en:lactose", "pt:leite", "pt:lactose"},
		Keywords: []string{
			"milk", "lactose", "butter", "cream", "cheese", "whey", "casein",
			"caseinate", "milkpowder", "powderedmilk", "skimmed", "yoghurt",
			"yogurt", "ghee",
		},
	},
	{
		Code:    TreeNuts,
		LabelEN: "Nuts (almond, hazelnut, walnut, cashew, pecan, Brazil nut, pistachio, macadamia)",
		LabelPT: "Frutos de casca rija (amêndoa, avelã, noz, caju, pecã, castanha do Brasil, pistácio, macadâmia)",
		Tags: []string{
			"en:nuts", "en:tree-nuts", "en:almonds", "en:hazelnuts",
			"en:walnuts", "en:cashew", "en:pistachio",
			"pt:frutos-de-casca-rija", "pt:frutos-de-casca-dura",
			"pt:amendoa", "pt:amendoas", "pt:avelas", "pt:noz", "pt:nozes",
			"pt:caju", "pt:pistacio",
		},
		Keywords: []string{
			"tree nut", "tree nuts", "almond", "almonds", "hazelnut",
			"hazelnuts", "walnut", "walnuts", "pecan", "pecans", "cashew",
			"cashews", "pistachio", "pistachios", "macadamia", "macadamias",
			"brazil nut", "brazil nuts", "pine nut", "pine nuts", "chestnut",
			"chestnuts",
		},
	},
	{
		Code:     Celery,
		LabelEN:  "Celery and products thereof",
		LabelPT:  "Aipo e produtos à base de aipo",
		Tags:     []string{"en:celery", "pt:aipo"},
		Keywords: []string{"celery", "celeriac"},
	},
	{
		Code:     Mustard,
		LabelEN:  "Mustard and products thereof",
		LabelPT:  "Mostarda e produtos à base de mostarda",
		Tags:     []string{"en:mustard", "pt:mostarda"},
		Keywords: []string{"mustard", "mustardseed", "mustardseeds", "dijon"},
	},
	{
		Code:    Sesame,
		LabelEN: "Sesame seeds and products thereof",
		LabelPT: "Sementes de sésamo e produtos à base de sésamo",
		Tags:    []string{"en:sesame", "en:sesame-seeds", "pt:sesamo", "pt:sementes-de-sesamo"},
		Keywords: []string{
			"sesame", "sesameseed", "sesameseeds", "tahini", "benne", "gingelly",
		},
	},
	{
		Code:    Sulphites,
		LabelEN: "Sulphur dioxide and sulphites >10mg/kg or 10mg/L",
		LabelPT: "Dióxido de enxofre e sulfitos em concentração superior a 10mg/kg ou 10mg/L",
		Tags: []string{
			"en:sulphur-dioxide-and-sulphites", "en:sulphites", "en:sulfites",
			"pt:dioxido-de-enxofre-e-sulfitos", "pt:sulfitos",
		},
		Keywords: []string{
			"sulphite", "sulphites", "sulfite", "sulfites", "sulphur dioxide",
			"sulfur dioxide", "e220", "e221", "e222", "e223", "e224", "e226",
			"e227", "e228",
		},
	},
	{
		Code:     Lupin,
		LabelEN:  "Lupin and products thereof",
		LabelPT:  "Tremoço e produtos à base de tremoço",
		Tags:     []string{"en:lupin", "en:lupine", "pt:tremoço", "pt:tremoco"},
		Keywords: []string{"lupin", "lupine", "tremoco", "tremoço"},
	},
	{
		Code:    Molluscs,
		LabelEN: "Molluscs and products thereof",
		LabelPT: "Moluscos e produtos à base de moluscos",
		Tags:    []string{"en:molluscs", "en:mollusks", "pt:moluscos"},
		Keywords: []string{
			"mollusc", "molluscs", "mollusk", "mollusks", "clam", "clams",
			"mussel", "mussels", "oyster", "oysters", "squid", "octopus",
			"cuttlefish", "snail", "whelk", "cockle", "scallop", "abalone",
		},
	},
}

var byCode = func() map[Code]*Definition {
	m := make(map[Code]*Definition, len(catalog))
	for i := range catalog {
		m[catalog[i].Code] = &catalog[i]
	}
	return m
}()

// Codes returns every catalog code in definition order.
func Codes() []Code {
	out := make([]Code, 0, len(catalog))
	for _, def := range catalog {
		out = append(out, def.Code)
	}
	return out
}

// Definitions returns the catalog in definition order. The returned slice is
// shared; callers must not modify it.
func Definitions() []Definition {
	return catalog
}

// Known reports whether code is part of the catalog.
func Known(code Code) bool {
	_, ok := byCode[code]
	return ok
}

// Label returns the human-readable label for code in the requested language
// ("en" or "pt"), falling back to English and finally to the code itself.
func Label(code Code, lang string) string {
	def, ok := byCode[code]
	if !ok {
		return string(code)
	}
	if lang == "pt" && def.LabelPT != "" {
		return def.LabelPT
	}
	if def.LabelEN != "" {
		return def.LabelEN
	}
	return string(code)
}
