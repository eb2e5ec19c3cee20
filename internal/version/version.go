// Package version provides build information for the intphys generator.
package version

// Version is the current release version, reported at startup and in the
// metrics labels. Override it at build time with:
//
//	go build -ldflags "-X github.com/AaronLay10/IntPhysDirector/internal/version.Version=x.y.z"
var Version = "0.3.0"
