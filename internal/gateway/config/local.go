package config

// withLocalArchiveDefaults points the s3 backend at the MinIO container of
// the local compose setup unless overridden.
func withLocalArchiveDefaults(a ArchiveConfig) ArchiveConfig {
	a.Endpoint = firstNonEmpty(a.Endpoint, "localhost:9000")
	a.AccessKey = firstNonEmpty(a.AccessKey, "codelens")
	a.SecretKey = firstNonEmpty(a.SecretKey, "codelens123")
	return a
}
