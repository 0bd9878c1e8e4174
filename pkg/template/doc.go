// Package template defines channel-specific notification templates and their
// rendering.
//
// Templates declare the set of variables they may reference; referencing an
// undeclared variable is an authoring error caught by Validate. Rendering is
// deliberately forgiving: an unresolved placeholder renders as an empty
// string and logs a warning, because one broken substitution must never block
// delivery to unrelated recipients.
//
// Channel constraints are enforced at render time: email and webhook may
// produce an HTML body, while sms and push render to a subject-less body
// truncated to a per-channel maximum length (SMS 160, push 240 by default).
package template
