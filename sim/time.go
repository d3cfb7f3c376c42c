package sim

// VTimeInSec defines time in the simulated space in the unit of
// second.
type VTimeInSec float64

// TimeTeller can be used to get the current simulated time.
type TimeTeller interface {
	CurrentTime() VTimeInSec
}
