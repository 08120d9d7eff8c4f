package types

import "time"

// Group is the top-level tenant unit owning addresses.
type Group struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// Sparky is the telemetry gateway optionally installed at an address.
type Sparky struct {
	UUID         string `json:"uuid"`
	SerialNumber string `json:"serialNumber"`
	BoxCode      string `json:"boxCode"`
}

// Address is a physical site within a group.
type Address struct {
	UUID   string  `json:"uuid"`
	Sparky *Sparky `json:"sparky,omitempty"`
}

// AddressPage is one offset/limit page of addresses plus the collection total.
type AddressPage struct {
	Addresses []Address `json:"addresses"`
	Total     int       `json:"total"`
}

// DeviceKind identifies one of the device collections attached to an address.
// The value doubles as the upstream URL path segment.
type DeviceKind string

const (
	KindVehicles        DeviceKind = "vehicles"
	KindChargers        DeviceKind = "chargers"
	KindSolarInverters  DeviceKind = "solar-inverters"
	KindSmartMeters     DeviceKind = "smart-meters"
	KindHvacs           DeviceKind = "hvacs"
	KindBatteries       DeviceKind = "batteries"
	KindGridConnections DeviceKind = "grid-connections"
)

// AllDeviceKinds lists every kind in the order the dashboard renders them.
var AllDeviceKinds = []DeviceKind{
	KindVehicles,
	KindChargers,
	KindSolarInverters,
	KindSmartMeters,
	KindHvacs,
	KindBatteries,
	KindGridConnections,
}

// ChargeState is the last reported charging snapshot of a vehicle, charger or
// battery.
type ChargeState struct {
	BatteryLevel       FlexFloat `json:"batteryLevel,omitempty"`
	PowerDeliveryState string    `json:"powerDeliveryState,omitempty"`
	MaxCurrent         FlexFloat `json:"maxCurrent,omitempty"`
}

type VehicleInfo struct {
	Brand string `json:"brand"`
	Model string `json:"model"`
	Year  int    `json:"year"`
}

type Vehicle struct {
	Identifier      string       `json:"identifier"`
	VIN             string       `json:"vin"`
	Info            VehicleInfo  `json:"info"`
	LastChargeState *ChargeState `json:"lastChargeState,omitempty"`
}

type Charger struct {
	Identifier      string       `json:"identifier"`
	Brand           string       `json:"brand"`
	Model           string       `json:"model"`
	LastChargeState *ChargeState `json:"lastChargeState,omitempty"`
}

// InverterInfo is the static info block of a solar inverter.
type InverterInfo struct {
	Brand            string   `json:"brand"`
	Model            string   `json:"model"`
	SiteName         string   `json:"siteName"`
	Timezone         string   `json:"timezone"`
	InstallationDate FlexTime `json:"installationDate"`
	LastSeen         FlexTime `json:"lastSeen"`
	IsReachable      bool     `json:"isReachable"`
	IsSteerable      bool     `json:"isSteerable"`
}

// ProductionState is the last reported production snapshot of an inverter.
type ProductionState struct {
	ProductionRate          FlexFloat `json:"productionRate"` // watts
	IsProducing             bool      `json:"isProducing"`
	TotalLifetimeProduction FlexFloat `json:"totalLifetimeProduction"` // watt-hours
	Time                    FlexTime  `json:"time"`
}

type SolarInverter struct {
	Identifier          string           `json:"identifier"`
	Info                InverterInfo     `json:"info"`
	LastProductionState *ProductionState `json:"lastProductionState,omitempty"`
}

// LastReported returns the most recent of the production-state time and the
// info last-seen time, used to order inverters by reporting recency.
func (s SolarInverter) LastReported() time.Time {
	t := s.Info.LastSeen.Time
	if s.LastProductionState != nil && s.LastProductionState.Time.After(t) {
		t = s.LastProductionState.Time.Time
	}
	return t
}

type SmartMeter struct {
	Identifier     string `json:"identifier"`
	SmartMeterType string `json:"smartMeterType"`
	MeterNumber    string `json:"meterNumber"`
	GasMeterNumber string `json:"gasMeterNumber,omitempty"`
}

type TemperatureState struct {
	CurrentTemperature FlexFloat `json:"currentTemperature"`
}

type Hvac struct {
	Identifier           string            `json:"identifier"`
	Brand                string            `json:"brand"`
	Model                string            `json:"model"`
	DisplayName          string            `json:"displayName"`
	Category             string            `json:"category"`
	LastTemperatureState *TemperatureState `json:"lastTemperatureState,omitempty"`
}

type Battery struct {
	Identifier      string       `json:"identifier"`
	Brand           string       `json:"brand"`
	Model           string       `json:"model"`
	SiteName        string       `json:"siteName"`
	LastChargeState *ChargeState `json:"lastChargeState,omitempty"`
}

type PhaseCapacity struct {
	Capacity FlexFloat `json:"capacity"`
}

type GridConnection struct {
	Identifier         string         `json:"identifier"`
	Type               string         `json:"type"`
	PhaseOneCapacity   *PhaseCapacity `json:"phaseOneCapacity,omitempty"`
	PhaseTwoCapacity   *PhaseCapacity `json:"phaseTwoCapacity,omitempty"`
	PhaseThreeCapacity *PhaseCapacity `json:"phaseThreeCapacity,omitempty"`
}

// DeviceSet holds every device collection of one address. A kind whose fetch
// failed is present as an empty slice with the failure recorded in Failed.
type DeviceSet struct {
	Vehicles        []Vehicle        `json:"vehicles"`
	Chargers        []Charger        `json:"chargers"`
	SolarInverters  []SolarInverter  `json:"solarInverters"`
	SmartMeters     []SmartMeter     `json:"smartMeters"`
	Hvacs           []Hvac           `json:"hvacs"`
	Batteries       []Battery        `json:"batteries"`
	GridConnections []GridConnection `json:"gridConnections"`

	// Failed lists the kinds whose fetch errored, for inline per-kind warnings.
	Failed []DeviceKind `json:"failed,omitempty"`
}

// Counts returns the number of devices per kind.
func (d DeviceSet) Counts() map[DeviceKind]int {
	return map[DeviceKind]int{
		KindVehicles:        len(d.Vehicles),
		KindChargers:        len(d.Chargers),
		KindSolarInverters:  len(d.SolarInverters),
		KindSmartMeters:     len(d.SmartMeters),
		KindHvacs:           len(d.Hvacs),
		KindBatteries:       len(d.Batteries),
		KindGridConnections: len(d.GridConnections),
	}
}

// Empty reports whether no kind returned any device.
func (d DeviceSet) Empty() bool {
	for _, n := range d.Counts() {
		if n > 0 {
			return false
		}
	}
	return true
}

// SteerableInverter is a steerable solar inverter annotated with the address
// it belongs to, as listed on the group-wide steering roster.
type SteerableInverter struct {
	SolarInverter
	AddressUUID        string `json:"addressUuid"`
	SparkySerialNumber string `json:"sparkySerialNumber,omitempty"`
}

// GroupAnalyticsSnapshot holds extrapolated device counts for a group. When
// IsSampled is true every count was scaled from SampledAddressCount addresses
// up to TotalAddressCount.
type GroupAnalyticsSnapshot struct {
	ConnectedSparkies int `json:"connectedSparkies"`
	ReportingSparkies int `json:"reportingSparkies"`
	Vehicles          int `json:"vehicles"`
	Chargers          int `json:"chargers"`
	SolarInverters    int `json:"solarInverters"`
	SmartMeters       int `json:"smartMeters"`
	Hvacs             int `json:"hvacs"`
	Batteries         int `json:"batteries"`
	GridConnections   int `json:"gridConnections"`

	TotalAddressCount   int       `json:"totalAddressCount"`
	SampledAddressCount int       `json:"sampledAddressCount"`
	IsSampled           bool      `json:"isSampled"`
	ComputedAt          time.Time `json:"computedAt"`
}

// GroupEnergy is the latest aggregate power reading for a whole group, watts.
type GroupEnergy struct {
	Production FlexFloat `json:"production"`
	Return     FlexFloat `json:"return"`
	Delivery   FlexFloat `json:"delivery"`
}

// SparkyDetails is the standalone gateway record returned by a serial lookup.
type SparkyDetails struct {
	SerialNumber string `json:"serialNumber"`
	BoxCode      string `json:"boxCode"`
	Status       string `json:"status"`
}

// P1Reading is an instantaneous reading from the gateway's P1 port, in kW.
type P1Reading struct {
	PowerDelivered FlexFloat `json:"power_delivered"`
	PowerReturned  FlexFloat `json:"power_returned"`
}

// Reading15Min is one 15-minute electricity interval, energies in kWh.
// Delivery sums peak and off-peak delivery; Return likewise.
type Reading15Min struct {
	From     FlexTime  `json:"from"`
	To       FlexTime  `json:"to"`
	Delivery FlexFloat `json:"delivery"`
	Return   FlexFloat `json:"return"`
}

// ProductionSample is one inverter production sample: instantaneous power in
// watts plus the cumulative lifetime energy counter in watt-hours.
type ProductionSample struct {
	Time        FlexTime  `json:"time"`
	Power       FlexFloat `json:"power"`
	EnergyTotal FlexFloat `json:"energyTotal"`
}

// ForecastInterval is one pre-aggregated hourly forecast interval.
type ForecastInterval struct {
	Start FlexTime  `json:"start"`
	WhSum FlexFloat `json:"whSum"`
}

// Forecast is one forecast result for a device and date.
type Forecast struct {
	Identifier    string             `json:"identifier"`
	Intervals     []ForecastInterval `json:"intervals"`
	ProcessedTime FlexTime           `json:"processedTime"`
	ModelType     string             `json:"modelType"`
	ModelVersion  string             `json:"modelVersion"`
}
