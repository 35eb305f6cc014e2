package version

// Version is the Major.Minor.Patch tag of the build, set with
// -ldflags "-X github.com/jake-scott/kasa-cloud/version.Version=..."
var Version string = "dev"
