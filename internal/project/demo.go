package project

import "time"

// SeedDemoProjects inserts the built-in showcase projects so the list,
// detail and export paths have content before any upload. The first demo
// carries a finished analysis and a journey past the first stages.
func SeedDemoProjects(s *Store) {
	cloud := &Project{
		ID:             "rfp-001",
		Title:          "Enterprise Cloud Migration",
		SourceFileName: "Enterprise_Cloud_Migration_RFP.pdf",
		Journey:        NewJourney(s.template),
		Analysis:       simulatedAnalysis(),
		CreatedAt:      time.Date(2026, time.July, 14, 9, 30, 0, 0, time.UTC),
	}
	// Frontier sits at Cost Estimation.
	for i := 0; i < 3; i++ {
		cloud.Journey[i].Status = StageCompleted
	}
	cloud.Journey[3].Status = StageInProgress
	s.Seed(cloud)

	network := &Project{
		ID:             "rfp-002",
		Title:          "Managed Network Services",
		SourceFileName: "Managed_Network_Services_RFP.pdf",
		Journey:        NewJourney(s.template),
		CreatedAt:      time.Date(2026, time.August, 2, 14, 15, 0, 0, time.UTC),
	}
	network.Journey[0].Status = StageCompleted
	network.Journey[1].Status = StageInProgress
	s.Seed(network)
}
