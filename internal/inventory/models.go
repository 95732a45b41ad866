package inventory

// modelNames maps RisPort numeric model codes to the short model names used
// throughout the inventory and by the scraper's family dispatch. The list
// covers the models observed in production; unknown codes pass through
// verbatim so new hardware still shows up.
var modelNames = map[string]string{
	"7":     "7960",
	"8":     "7940",
	"9":     "7935",
	"115":   "7941",
	"302":   "7985",
	"307":   "7911",
	"308":   "7961G-GE",
	"309":   "7941G-GE",
	"335":   "Motorola CN622",
	"348":   "7931",
	"358":   "7921",
	"365":   "7906",
	"369":   "7942",
	"404":   "7962",
	"431":   "7937",
	"434":   "7942",
	"435":   "7945",
	"436":   "7965",
	"437":   "7975",
	"446":   "3951",
	"484":   "7925",
	"493":   "9971",
	"495":   "6921",
	"496":   "6941",
	"497":   "6961",
	"537":   "9951",
	"540":   "8961",
	"564":   "6945",
	"585":   "8945",
	"586":   "8941",
	"621":   "6901",
	"622":   "6911",
	"626":   "SPA525G2",
	"627":   "SPA504G",
	"631":   "SPA508G",
	"633":   "SPA502G",
	"36041": "ATA 187",
	"36207": "8831",
	"36210": "SPA512G",
	"36213": "SPA514G",
	"36216": "8841",
	"36217": "8851",
	"36224": "8861",
	"36225": "8811",
	"36227": "7821",
	"36228": "7841",
	"36229": "7861",
	"36232": "8845",
	"36235": "8865",
	"36247": "ATA 190",
	"36255": "8821",
	"36669": "7832",
	"36670": "8832",
	"12":    "ATA 186",
	"20000": "ATA 188",
	"30018": "7961",
	"30019": "7936",
	"30035": "IP Communicator",
}

// ModelName translates a RisPort model code to a short model name. Unmapped
// codes are returned unchanged.
func ModelName(code string) string {
	if name, ok := modelNames[code]; ok {
		return name
	}
	return code
}
