package session

// Navigator is implemented by the hosting application's router.
type Navigator interface {
	CurrentRoute() string
	Navigate(route string)
}

type nopNavigator struct{}

func (nopNavigator) CurrentRoute() string { return "" }
func (nopNavigator) Navigate(string)      {}
