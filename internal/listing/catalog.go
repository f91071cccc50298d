package listing

const (
	TypeEquipment = "equipment"
	TypePart      = "part"
)

var ListingTypes = []string{TypeEquipment, TypePart}

var Categories = []string{
	"Agitation",
	"Pompage",
	"Épuration",
	"Sécurité",
	"Thermique",
	"Automatisme",
	"Compression",
	"Stockage",
	"Séparation",
	"Cogénération",
	"Analyse",
	"Prétraitement",
	"Instrumentation",
}

var Conditions = []string{
	"Neuf",
	"Comme neuf",
	"Très bon état",
	"Bon état",
	"Révisé",
	"Reconditionné",
}

type CatalogResponse struct {
	ListingTypes []string `json:"listing_types"`
	Categories   []string `json:"categories"`
	Conditions   []string `json:"conditions"`
}

func Catalog() CatalogResponse {
	return CatalogResponse{
		ListingTypes: append([]string(nil), ListingTypes...),
		Categories:   append([]string(nil), Categories...),
		Conditions:   append([]string(nil), Conditions...),
	}
}
