package coastguard

import "github.com/couchcryptid/marine-report-insights/internal/domain"

// emergencyTel is the nationwide maritime emergency number.
const emergencyTel = "122"

// builtinStations is served when the directory API is unavailable.
var builtinStations = []domain.CoastGuardStation{
	{Name: "인천해양경찰서", Tel: emergencyTel, Lat: 37.4530, Lon: 126.6010},
	{Name: "평택해양경찰서", Tel: emergencyTel, Lat: 36.9670, Lon: 126.8300},
	{Name: "태안해양경찰서", Tel: emergencyTel, Lat: 36.7450, Lon: 126.2980},
	{Name: "보령해양경찰서", Tel: emergencyTel, Lat: 36.3330, Lon: 126.6120},
	{Name: "군산해양경찰서", Tel: emergencyTel, Lat: 35.9760, Lon: 126.7110},
	{Name: "목포해양경찰서", Tel: emergencyTel, Lat: 34.7900, Lon: 126.3840},
	{Name: "완도해양경찰서", Tel: emergencyTel, Lat: 34.3110, Lon: 126.7550},
	{Name: "여수해양경찰서", Tel: emergencyTel, Lat: 34.7400, Lon: 127.7370},
	{Name: "통영해양경찰서", Tel: emergencyTel, Lat: 34.8540, Lon: 128.4330},
	{Name: "창원해양경찰서", Tel: emergencyTel, Lat: 35.1950, Lon: 128.5760},
	{Name: "부산해양경찰서", Tel: emergencyTel, Lat: 35.0990, Lon: 129.0400},
	{Name: "울산해양경찰서", Tel: emergencyTel, Lat: 35.4980, Lon: 129.3870},
	{Name: "포항해양경찰서", Tel: emergencyTel, Lat: 36.0320, Lon: 129.3650},
	{Name: "동해해양경찰서", Tel: emergencyTel, Lat: 37.5240, Lon: 129.1140},
	{Name: "속초해양경찰서", Tel: emergencyTel, Lat: 38.2070, Lon: 128.5910},
	{Name: "제주해양경찰서", Tel: emergencyTel, Lat: 33.5170, Lon: 126.5290},
	{Name: "서귀포해양경찰서", Tel: emergencyTel, Lat: 33.2410, Lon: 126.5600},
}

// BuiltinStations returns a copy of the fallback station list.
func BuiltinStations() []domain.CoastGuardStation {
	out := make([]domain.CoastGuardStation, len(builtinStations))
	copy(out, builtinStations)
	return out
}
