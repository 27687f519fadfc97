package apportion

// HouseSize is the statutory size of the U.S. House of Representatives.
const HouseSize = 435

// Populations2020 holds the 2020 apportionment populations of the fifty
// states, keyed by state FIPS code. These are the counts used for the
// post-2020 house apportionment (resident population plus overseas
// federal employees). The District of Columbia receives no house seat
// and is not listed.
var Populations2020 = map[string]int64{
	"01": 5030053,  // Alabama
	"02": 736081,   // Alaska
	"04": 7158923,  // Arizona
	"05": 3013756,  // Arkansas
	"06": 39576757, // California
	"08": 5782171,  // Colorado
	"09": 3608298,  // Connecticut
	"10": 990837,   // Delaware
	"12": 21570527, // Florida
	"13": 10725274, // Georgia
	"15": 1460137,  // Hawaii
	"16": 1841377,  // Idaho
	"17": 12822739, // Illinois
	"18": 6790280,  // Indiana
	"19": 3192406,  // Iowa
	"20": 2940865,  // Kansas
	"21": 4509342,  // Kentucky
	"22": 4661468,  // Louisiana
	"23": 1363582,  // Maine
	"24": 6185278,  // Maryland
	"25": 7033469,  // Massachusetts
	"26": 10084442, // Michigan
	"27": 5709752,  // Minnesota
	"28": 2963914,  // Mississippi
	"29": 6160281,  // Missouri
	"30": 1085407,  // Montana
	"31": 1963333,  // Nebraska
	"32": 3108462,  // Nevada
	"33": 1379089,  // New Hampshire
	"34": 9294493,  // New Jersey
	"35": 2120220,  // New Mexico
	"36": 20215751, // New York
	"37": 10453948, // North Carolina
	"38": 779702,   // North Dakota
	"39": 11808848, // Ohio
	"40": 3963516,  // Oklahoma
	"41": 4241500,  // Oregon
	"42": 13011844, // Pennsylvania
	"44": 1098163,  // Rhode Island
	"45": 5124712,  // South Carolina
	"46": 887770,   // South Dakota
	"47": 6916897,  // Tennessee
	"48": 29183290, // Texas
	"49": 3275252,  // Utah
	"50": 643503,   // Vermont
	"51": 8654542,  // Virginia
	"53": 7715946,  // Washington
	"54": 1795045,  // West Virginia
	"55": 5897473,  // Wisconsin
	"56": 577719,   // Wyoming
}

// Seats2020 returns the seat count a state received in the post-2020
// apportionment, or 0 with ok=false when the state is not in the table
// (e.g. the District of Columbia).
func Seats2020(stateFIPS string) (int, bool) {
	seats, err := Calculate(Populations2020, HouseSize)
	if err != nil {
		return 0, false
	}
	n, ok := seats[stateFIPS]
	return n, ok
}
