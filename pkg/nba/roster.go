package nba

import "strings"

// Roster is the fixed list of franchises, used when the upstream cannot be
// asked for teams or games.
var Roster = []Team{
	{ID: 1, Abbreviation: "ATL", City: "Atlanta", Conference: ConferenceEast, Division: "Southeast", FullName: "Atlanta Hawks", Name: "Hawks"},
	{ID: 2, Abbreviation: "BOS", City: "Boston", Conference: ConferenceEast, Division: "Atlantic", FullName: "Boston Celtics", Name: "Celtics"},
	{ID: 3, Abbreviation: "BKN", City: "Brooklyn", Conference: ConferenceEast, Division: "Atlantic", FullName: "Brooklyn Nets", Name: "Nets"},
	{ID: 4, Abbreviation: "CHA", City: "Charlotte", Conference: ConferenceEast, Division: "Southeast", FullName: "Charlotte Hornets", Name: "Hornets"},
	{ID: 5, Abbreviation: "CHI", City: "Chicago", Conference: ConferenceEast, Division: "Central", FullName: "Chicago Bulls", Name: "Bulls"},
	{ID: 6, Abbreviation: "CLE", City: "Cleveland", Conference: ConferenceEast, Division: "Central", FullName: "Cleveland Cavaliers", Name: "Cavaliers"},
	{ID: 7, Abbreviation: "DAL", City: "Dallas", Conference: ConferenceWest, Division: "Southwest", FullName: "Dallas Mavericks", Name: "Mavericks"},
	{ID: 8, Abbreviation: "DEN", City: "Denver", Conference: ConferenceWest, Division: "Northwest", FullName: "Denver Nuggets", Name: "Nuggets"},
	{ID: 9, Abbreviation: "DET", City: "Detroit", Conference: ConferenceEast, Division: "Central", FullName: "Detroit Pistons", Name: "Pistons"},
	{ID: 10, Abbreviation: "GSW", City: "Golden State", Conference: ConferenceWest, Division: "Pacific", FullName: "Golden State Warriors", Name: "Warriors"},
	{ID: 11, Abbreviation: "HOU", City: "Houston", Conference: ConferenceWest, Division: "Southwest", FullName: "Houston Rockets", Name: "Rockets"},
	{ID: 12, Abbreviation: "IND", City: "Indiana", Conference: ConferenceEast, Division: "Central", FullName: "Indiana Pacers", Name: "Pacers"},
	{ID: 13, Abbreviation: "LAC", City: "LA", Conference: ConferenceWest, Division: "Pacific", FullName: "LA Clippers", Name: "Clippers"},
	{ID: 14, Abbreviation: "LAL", City: "Los Angeles", Conference: ConferenceWest, Division: "Pacific", FullName: "Los Angeles Lakers", Name: "Lakers"},
	{ID: 15, Abbreviation: "MEM", City: "Memphis", Conference: ConferenceWest, Division: "Southwest", FullName: "Memphis Grizzlies", Name: "Grizzlies"},
	{ID: 16, Abbreviation: "MIA", City: "Miami", Conference: ConferenceEast, Division: "Southeast", FullName: "Miami Heat", Name: "Heat"},
	{ID: 17, Abbreviation: "MIL", City: "Milwaukee", Conference: ConferenceEast, Division: "Central", FullName: "Milwaukee Bucks", Name: "Bucks"},
	{ID: 18, Abbreviation: "MIN", City: "Minnesota", Conference: ConferenceWest, Division: "Northwest", FullName: "Minnesota Timberwolves", Name: "Timberwolves"},
	{ID: 19, Abbreviation: "NOP", City: "New Orleans", Conference: ConferenceWest, Division: "Southwest", FullName: "New Orleans Pelicans", Name: "Pelicans"},
	{ID: 20, Abbreviation: "NYK", City: "New York", Conference: ConferenceEast, Division: "Atlantic", FullName: "New York Knicks", Name: "Knicks"},
	{ID: 21, Abbreviation: "OKC", City: "Oklahoma City", Conference: ConferenceWest, Division: "Northwest", FullName: "Oklahoma City Thunder", Name: "Thunder"},
	{ID: 22, Abbreviation: "ORL", City: "Orlando", Conference: ConferenceEast, Division: "Southeast", FullName: "Orlando Magic", Name: "Magic"},
	{ID: 23, Abbreviation: "PHI", City: "Philadelphia", Conference: ConferenceEast, Division: "Atlantic", FullName: "Philadelphia 76ers", Name: "76ers"},
	{ID: 24, Abbreviation: "PHX", City: "Phoenix", Conference: ConferenceWest, Division: "Pacific", FullName: "Phoenix Suns", Name: "Suns"},
	{ID: 25, Abbreviation: "POR", City: "Portland", Conference: ConferenceWest, Division: "Northwest", FullName: "Portland Trail Blazers", Name: "Trail Blazers"},
	{ID: 26, Abbreviation: "SAC", City: "Sacramento", Conference: ConferenceWest, Division: "Pacific", FullName: "Sacramento Kings", Name: "Kings"},
	{ID: 27, Abbreviation: "SAS", City: "San Antonio", Conference: ConferenceWest, Division: "Southwest", FullName: "San Antonio Spurs", Name: "Spurs"},
	{ID: 28, Abbreviation: "TOR", City: "Toronto", Conference: ConferenceEast, Division: "Atlantic", FullName: "Toronto Raptors", Name: "Raptors"},
	{ID: 29, Abbreviation: "UTA", City: "Utah", Conference: ConferenceWest, Division: "Northwest", FullName: "Utah Jazz", Name: "Jazz"},
	{ID: 30, Abbreviation: "WAS", City: "Washington", Conference: ConferenceEast, Division: "Southeast", FullName: "Washington Wizards", Name: "Wizards"},
}

// FilterTeams returns the teams matching conference and division. Empty
// arguments match everything; comparison ignores case.
func FilterTeams(teams []Team, conference, division string) []Team {
	out := make([]Team, 0, len(teams))
	for _, t := range teams {
		if conference != "" && !strings.EqualFold(t.Conference, conference) {
			continue
		}
		if division != "" && !strings.EqualFold(t.Division, division) {
			continue
		}
		out = append(out, t)
	}
	return out
}
