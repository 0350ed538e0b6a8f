package portal

import "embed"

// EmailFS holds the HTML and plaintext e-mail templates, one directory per
// template name.
//
//go:embed templates/emails
var EmailFS embed.FS
