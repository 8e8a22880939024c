// Package translation localizes classifier labels for display.
package translation

// LanguageIndonesian is the only language with a label table.
const LanguageIndonesian = "id"

var labelsID = map[string]string{
	"cat":                "kucing",
	"tabby":              "kucing tabby",
	"tiger cat":          "kucing belang",
	"Persian cat":        "kucing persia",
	"Egyptian cat":       "kucing mesir",
	"dog":                "anjing",
	"golden retriever":   "golden retriever",
	"Labrador retriever": "labrador retriever",
	"German shepherd":    "german shepherd",
	"beagle":             "beagle",
	"car wheel":          "roda mobil",
	"sports car":         "mobil sport",
	"ambulance":          "ambulans",
	"fire engine":        "mobil pemadam",
	"airliner":           "pesawat penumpang",
	"banana":             "pisang",
	"orange":             "jeruk",
	"pizza":              "pizza",
	"cheeseburger":       "burger keju",
	"coffee mug":         "cangkir kopi",
	"laptop":             "laptop",
	"desktop computer":   "komputer desktop",
	"cellular telephone": "ponsel",
	"television":         "televisi",
	"bookshop":           "toko buku",
}

// TranslateLabel returns the display label for lang. Labels without an
// entry, and every language other than Indonesian, pass through unchanged.
func TranslateLabel(label, lang string) string {
	if lang != LanguageIndonesian {
		return label
	}
	if translated, ok := labelsID[label]; ok {
		return translated
	}
	return label
}
