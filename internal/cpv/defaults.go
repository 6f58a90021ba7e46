package cpv

// DefaultFilter returns the curated CPV taxonomy subset for web/mobile
// development tenders.
func DefaultFilter() *Filter {
	return &Filter{
		Relevant: map[string]string{
			"72200000": "Softwareprogrammierung und -beratung",
			"72210000": "Programmierung von Softwarepaketen",
			"72211000": "Programmierung von System- und Anwendersoftware",
			"72212000": "Programmierung von Anwendersoftware",
			"72212100": "Branchenspezifische Softwareentwicklung",
			"72212500": "Entwicklung von Kommunikations-/Multimedia-Software",
			"72212900": "Diverse Softwareentwicklung (Webanwendungen)",
			"72220000": "Systemberatung und technische Beratung",
			"72222000": "Beratung im Bereich Informationstechnologie",
			"72222300": "IT-Beratungsdienste",
			"72227000": "Beratung im Bereich Software-Integration",
			"72230000": "Entwicklung von kundenspezifischer Software",
			"72232000": "Entwicklung von Transaktionsverarbeitungssoftware",
			"72240000": "Systemanalyse und Programmierung",
			"72254000": "Softwaretest",
			"72260000": "Softwarebezogene Dienstleistungen",
			"72262000": "Softwareentwicklungsdienste",
			"72263000": "Software-Implementierung",
			"72265000": "Software-Konfiguration",
			"72266000": "Software-Beratung",
			"72267000": "Software-Wartung und -Reparatur",
			"72320000": "Datenbankdienste",
			"72400000": "Internetdienste",
			"72413000": "Website-Gestaltung",
			"72414000": "Suchmaschinen für Datenabfrage",
			"72415000": "Hosting für Website-Betrieb",
			"72416000": "Application Service Provider",
			"72420000": "Internet-Entwicklungsdienste",
			"72421000": "Internet/Intranet-Client-Anwendungsentwicklung",
			"72422000": "Internet/Intranet-Server-Anwendungsentwicklung",
			"48200000": "Software für Vernetzung, Internet und Intranet",
			"48220000": "Internet-Softwarepaket",
			"48400000": "Software für Geschäftstransaktionen",
			"48500000": "Kommunikations- und Multimedia-Software",
			"48600000": "Datenbank- und Betriebssoftware",
			"48610000": "Datenbanksysteme",
			"48700000": "Softwarepaket-Dienstprogramme",
			"48800000": "Informationssysteme und Server",
			"48810000": "Informationssysteme",
		},
		Excluded: map[string]string{
			"30200000": "Computeranlagen und Zubehör",
			"32000000": "Rundfunk- und Fernsehgeräte",
			"48100000": "Branchenspezifisches Softwarepaket",
			"72253000": "Helpdesk und Unterstützungsdienste",
		},
		Bonus: map[string]int{
			"72212900": 10,
			"72420000": 10,
			"72413000": 8,
			"72421000": 8,
			"72422000": 8,
			"72230000": 5,
			"72262000": 5,
			"48220000": 5,
			"48810000": 5,
		},
		HierarchyPrefixes: map[string]string{
			"72":   "IT-Dienstleistungen",
			"722":  "Softwareprogrammierung",
			"724":  "Internetdienste",
			"7220": "Softwareentwicklung",
			"7221": "Anwendersoftware",
			"7226": "Softwaredienstleistungen",
			"7241": "Webdienste",
			"7242": "Internet-Entwicklung",
			"482":  "Internet/Netzwerk-Software",
			"486":  "Datenbank-Software",
			"488":  "Informationssysteme",
		},
		FallbackKeywords: []string{
			"software", "entwicklung", "webapp", "portal", "anwendung",
			"plattform", "app", "webentwicklung", "programmierung",
			"it-system", "digitalisierung", "webanwendung", "applikation",
			"fachverfahren", "informationssystem", "datenbank",
			"schnittstelle", "api", "backend", "frontend", "cloud", "saas",
			"e-government", "onlinedienst", "serviceportal",
			"it-dienstleistung", "softwarelösung", "individualsoftware",
			"fachanwendung",
		},
	}
}
