package main

// _version is the version of lazyhl.
// Release builds override it with -ldflags "-X main._version=...".
var _version = "dev"
