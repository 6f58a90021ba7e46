package keyword

// DefaultConfig returns the curated keyword configuration for the team's
// web/mobile profile. The lists are maintained by hand; weights reflect how
// strongly a keyword predicts a fit or a mismatch.
func DefaultConfig() *Config {
	return &Config{
		Tier1: []string{
			"vue", "vue.js", "vuejs", "nuxt", "nuxtjs",
			"python", "django", "fastapi",
			"c#", ".net", "dotnet", "asp.net", "blazor",
			"java", "spring", "spring boot", "springboot",
			"fullstack", "full-stack", "backend", "frontend",
		},
		Tier2: []string{
			"react", "angular", "typescript", "javascript",
			"html", "css", "scss", "sass", "tailwind", "bootstrap",
			"webpack", "vite", "next.js", "nextjs",
			"node", "nodejs", "node.js", "express", "nestjs", "flask",
			"entity framework", "ef core", "sql server", ".net core",
			"kotlin", "hibernate", "maven", "gradle",
			"postgresql", "mongodb", "redis",
			"rest", "graphql", "api", "microservice", "microservices",
			"jwt", "oauth", "oauth2", "dsgvo", "datenschutz", "gdpr",
			"docker", "aws", "azure", "kubernetes", "terraform",
			"github actions", "azure devops", "gcp",
			"vuex", "pinia", "vuetify", "redux",
		},
		Tier3: []string{
			"agile", "scrum", "devops", "ci/cd", "cicd", "git",
			"responsive", "spa", "pwa", "webentwicklung",
			"mysql", "elasticsearch", "rabbitmq", "kafka", "linux",
			"jenkins", "gitlab", "figma", "storybook",
			"jest", "cypress", "playwright", "svelte",
			"axios", "swagger", "openapi",
		},

		Tier1Points: 18,
		Tier2Points: 10,
		Tier3Points: 5,

		Tier1Max: 32,
		Tier2Max: 17,
		Tier3Max: 12,

		Combos: map[string]int{
			ComboKey("vue", "python"):        8,
			ComboKey("vue", "django"):        8,
			ComboKey("vue", "c#"):            8,
			ComboKey("vue", ".net"):          8,
			ComboKey("react", "python"):      6,
			ComboKey("react", "node"):        6,
			ComboKey("angular", "java"):      6,
			ComboKey("angular", "spring"):    6,
			ComboKey("java", "spring"):       6,
			ComboKey("c#", "asp.net"):        6,
			ComboKey("python", "postgresql"): 5,
			ComboKey(".net", "sql server"):   5,
			ComboKey("vue", "typescript"):    5,
			ComboKey("react", "typescript"):  5,
			ComboKey("graphql", "vue"):       5,
			ComboKey("graphql", "react"):     5,
			ComboKey("docker", "kubernetes"): 4,
			ComboKey("python", "docker"):     3,
			ComboKey("java", "docker"):       3,
			ComboKey("rest", "python"):       3,
		},
		ComboMax: 11,

		TotalMax: 40,

		RejectWeights: map[string]int{
			// absolute no-gos
			"sap": 100, "abap": 100, "cobol": 100, "mainframe": 100,
			"as400": 100, "sharepoint": 100, "dynamics": 100, "salesforce": 100,
			// strong rejection
			"php": 50, "wordpress": 50, "drupal": 50, "joomla": 50, "typo3": 50,
			// weak rejection, only rejects in combination
			"helpdesk": 30, "support": 30, "1st level": 30, "2nd level": 30,
			"hardware": 30, "netzwerk": 30, "firewall": 30, "cisco": 30,
			// embedded/industrial
			"sps": 40, "embedded": 40, "maschinenbau": 40, "elektrotechnik": 40,
			// non-IT trades that dominate tender portals
			"bauarbeiten": 150, "bauleistungen": 150, "hochbau": 150,
			"tiefbau": 150, "rohbau": 150, "trockenbau": 150,
			"elektroinstallation": 150, "starkstrom": 150, "schaltanlagen": 150,
			"metallbau": 150, "stahlbau": 150,
			"heizungsanlage": 150, "klimaanlage": 150, "sanitärinstallation": 150,
			"gebäudereinigung": 150, "winterdienst": 150,
			"wachdienst": 150, "objektschutz": 150, "sicherheitsdienst": 150,
			"drucksachen": 150, "büromöbel": 150, "arbeitskleidung": 150,
		},
		RejectThreshold: 100,

		BoostKeywords: []string{
			"webanwendung", "webapp", "portal", "plattform",
			"react", "vue", "angular", "typescript",
			"python", "django", "java", "spring", "c#", ".net",
			"api", "backend", "frontend", "fullstack",
		},
		BoostPoints:           10,
		SimpleRejectThreshold: 1,
	}
}
