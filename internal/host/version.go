package host

// Version is the semantic version string returned by the version command
// (c:10). Bumped to 1.0.0 for this rewrite, independent of the original
// source's WEBCARD_VERSION history.
const Version = "1.0.0"
