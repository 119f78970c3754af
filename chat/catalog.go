package chat

// Catalog returns the fixed set of supported integration types. Every
// supported type is visible in the UI even with zero configured
// instances; startup merges stored integrations against this list.
func Catalog() []Integration {
	return []Integration{
		{Type: "postgresql", Name: "PostgreSQL", Icon: "🐘"},
		{Type: "sharepoint", Name: "SharePoint", Icon: "📊"},
		{Type: "dropbox", Name: "Dropbox", Icon: "📦"},
		{Type: "github", Name: "GitHub", Icon: "🐙"},
		{Type: "email", Name: "Email", Icon: "📧"},
		{Type: "salesforce", Name: "Salesforce", Icon: "☁️"},
		{Type: "elasticsearch", Name: "Elasticsearch", Icon: "🔍"},
		{Type: "solr", Name: "Solr", Icon: "☀️"},
		{Type: "gitlab", Name: "GitLab", Icon: "🦊"},
		{Type: "notion", Name: "Notion", Icon: "📝"},
		{Type: "snowflake", Name: "Snowflake", Icon: "❄️"},
	}
}

// KnownType reports whether t is a supported integration type.
func KnownType(t string) bool {
	for _, integ := range Catalog() {
		if integ.Type == t {
			return true
		}
	}
	return false
}
