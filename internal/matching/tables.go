package matching

// Tables holds the static vocabularies used by the normalizer and the prefix
// extractor. Keys are compared after NormalizePlainText + uppercase, so the
// tables may be written with accents, dashes or lowercase letters.
type Tables struct {
	// BrandAliases maps a brand label onto its canonical brand key.
	BrandAliases map[string]string
	// SkipTokens are body-style and trim words ignored while collecting model tokens.
	SkipTokens []string
	// BreakTokens end the model token run (transmission, drivetrain, powertrain).
	BreakTokens []string
	// SingleLetters are chassis-series letters accepted as a leading model token.
	SingleLetters []string
}

// DefaultTables returns the vocabularies tuned for the Colombian used-vehicle guide.
func DefaultTables() Tables {
	return Tables{
		BrandAliases: map[string]string{
			"BMW":            "BMW",
			"BMWMOTORRAD":    "BMW",
			"BMW MOTORRAD":   "BMW",
			"BMW - MOTORRAD": "BMW",
			"BMW GROUP":      "BMW",
			"MINI":           "MINI",
			"MINI COOPER":    "MINI",
			"MINI/BMW":       "MINI",
			"ROLLS ROYCE":    "ROLLS ROYCE",
			"ROLLS-ROYCE":    "ROLLS ROYCE",
			"MERCEDES":       "MERCEDES BENZ",
			"MERCEDES BENZ":  "MERCEDES BENZ",
			"MERCEDES-BENZ":  "MERCEDES BENZ",
			"LAND ROVER":     "LAND ROVER",
			"VW":             "VOLKSWAGEN",
			"VOLKSWAGEN":     "VOLKSWAGEN",
			"CHEVROLET":      "CHEVROLET",
			"GM":             "CHEVROLET",
			"RENAULT":        "RENAULT",
			"MAZDA":          "MAZDA",
			"TOYOTA":         "TOYOTA",
			"NISSAN":         "NISSAN",
			"KIA":            "KIA",
			"HYUNDAI":        "HYUNDAI",
			"FORD":           "FORD",
			"AUDI":           "AUDI",
			"PORSCHE":        "PORSCHE",
			"VOLVO":          "VOLVO",
			"SUZUKI":         "SUZUKI",
			"HONDA":          "HONDA",
			"YAMAHA":         "YAMAHA",
			"KTM":            "KTM",
			"DUCATI":         "DUCATI",
		},
		SkipTokens: []string{
			"SEDAN", "HATCHBACK", "HB", "COUPE", "CABRIOLET", "CONVERTIBLE",
			"DESCAPOTABLE", "DESCAPOTABLES", "STATION", "WAGON", "VAN", "PASAJEROS",
			"CAMIONETA", "SPORT", "SPORTS", "PREMIUM", "LUXURY", "LINE", "EDITION",
			"FACELIFT", "PACK", "PLUS", "BASE", "EXECUTIVE", "COMFORT", "TOURING",
			"SERIE", "SERIES", "NUEVO", "NUEVA",
		},
		BreakTokens: []string{
			"MT", "AT", "ABS", "CVT", "DCT", "TP", "AUT", "AUTOMATICO", "AUTOMATICA",
			"MEC", "MECANICO", "MECANICA", "4X4", "4X2", "AWD", "4WD", "2WD", "FWD", "RWD",
			"HYBRID", "HIBRIDO", "HIBRIDA", "HEV", "PHEV", "MHEV", "ELECTRICO", "EV",
		},
		SingleLetters: []string{"C", "F", "G", "K", "M", "R", "S"},
	}
}
