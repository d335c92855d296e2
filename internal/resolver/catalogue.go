package resolver

// Statute is one chargeable offense from the statutory code book.
type Statute struct {
	Code           string   `json:"code"`
	Keywords       []string `json:"-"`
	Act            string   `json:"act"`
	Section        string   `json:"section"`
	Charge         string   `json:"charge"`
	Fine           int64    `json:"fine"`
	SafetyCritical bool     `json:"is_safety_critical"`
}

const (
	actRTA = "Road Traffic Act [Chapter 13:11]"
	actSI  = "Statutory Instrument 154 of 2010"
	actVRL = "Vehicle Registration & Licensing Act"
)

var statutes = []Statute{
	// Licensing and insurance.
	{Code: "RTA-C13-S6", Keywords: []string{"license", "licence", "dl", "driver"}, Act: actRTA, Section: "Section 6", Charge: "Driving without a valid driver's license", Fine: 100, SafetyCritical: true},
	{Code: "RTA-C13-S22", Keywords: []string{"insurance", "third party", "policy"}, Act: actRTA, Section: "Section 22", Charge: "Driving without valid Third Party Insurance", Fine: 30},
	{Code: "VR-ACT-S10", Keywords: []string{"disc", "vehicle license", "zinara"}, Act: actVRL, Section: "Section 10", Charge: "Failure to display valid vehicle license disc", Fine: 20},

	// Tyres and wheels.
	{Code: "SI154-S14", Keywords: []string{"tires", "tyres", "worn", "bald", "tread", "ply"}, Act: actSI, Section: "Section 14", Charge: "Worn tires (tread depth less than 1mm)", Fine: 20, SafetyCritical: true},
	{Code: "SI154-S16", Keywords: []string{"spare", "wheel", "jack"}, Act: actSI, Section: "Section 16", Charge: "No functional spare wheel or jack", Fine: 15},

	// Lights and reflectors.
	{Code: "SI154-S18", Keywords: []string{"headlight", "headlamp", "light", "dim"}, Act: actSI, Section: "Section 18", Charge: "Operating vehicle without functional headlamps", Fine: 20, SafetyCritical: true},
	{Code: "SI154-S19", Keywords: []string{"brake light", "stop light", "rear light"}, Act: actSI, Section: "Section 19", Charge: "Non-functional stop/brake lights", Fine: 20, SafetyCritical: true},
	{Code: "SI154-S24", Keywords: []string{"indicator", "turn signal", "flasher"}, Act: actSI, Section: "Section 24", Charge: "Non-functional direction indicators", Fine: 15, SafetyCritical: true},
	{Code: "SI154-S35", Keywords: []string{"reflector", "white", "front reflector"}, Act: actSI, Section: "Section 35", Charge: "Missing White Front Reflectors", Fine: 10},
	{Code: "SI154-S36", Keywords: []string{"honeycomb", "red", "rear reflector"}, Act: actSI, Section: "Section 36", Charge: "Missing Red Rear Reflectors (Honeycomb)", Fine: 10},

	// Safety equipment.
	{Code: "SI154-S56", Keywords: []string{"fire", "extinguisher", "fire extinguisher"}, Act: actSI, Section: "Section 56", Charge: "No functional fire extinguisher (0.75kg min)", Fine: 20, SafetyCritical: true},
	{Code: "SI154-S57", Keywords: []string{"triangle", "red triangle", "breakdown"}, Act: actSI, Section: "Section 57", Charge: "Failure to carry two red reflective triangles", Fine: 15},
	{Code: "SI154-S61", Keywords: []string{"vest", "reflective vest", "yellow vest"}, Act: actSI, Section: "Section 61", Charge: "Failure to carry reflective safety vest", Fine: 10},

	// Driving conduct.
	{Code: "RTA-C13-S51", Keywords: []string{"speed", "speeding", "fast"}, Act: actRTA, Section: "Section 51", Charge: "Exceeding speed limit", Fine: 50, SafetyCritical: true},
	{Code: "RTA-C13-S46", Keywords: []string{"careless", "negligent", "lane"}, Act: actRTA, Section: "Section 46", Charge: "Careless driving / Failure to maintain lane", Fine: 100, SafetyCritical: true},
	{Code: "RTA-C13-S72", Keywords: []string{"obey", "police", "instruction", "stop"}, Act: actRTA, Section: "Section 72", Charge: "Failure to obey police instruction", Fine: 300, SafetyCritical: true},
}

// ChecklistItem is one roadside inspection check from SI 154.
type ChecklistItem struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Critical bool   `json:"is_critical"`
	Fine     int64  `json:"fine"`
	Code     string `json:"code"`
}

var checklist = []ChecklistItem{
	{ID: "tires", Label: "Tires (Tread < 1mm)", Critical: true, Fine: 30, Code: "SI154-14(1)"},
	{ID: "brakes", Label: "Foot/Hand Brakes Defective", Critical: true, Fine: 60, Code: "SI154-18"},
	{ID: "lights", Label: "Headlamps/Tail Lights Defective", Critical: true, Fine: 20, Code: "SI154-22"},
	{ID: "wipers", Label: "No Windscreen Wipers", Fine: 10, Code: "SI154-43"},
	{ID: "horn", Label: "No Warning Device (Horn)", Fine: 10, Code: "SI154-46"},
	{ID: "fire", Label: "No Fire Extinguisher", Fine: 15, Code: "SI154-52"},
	{ID: "triangles", Label: "Missing Warning Triangles", Fine: 15, Code: "SI154-53"},
}
