package reminders

import "strings"

// tagDelimiter marks the start of the tag block appended to a
// reminder's notes. Everything from the delimiter to the end of the
// notes text is the tag block; everything before it is free-text notes.
const tagDelimiter = "\n---\ntags: "

// encodeNotes joins free-text notes with a trailing tag block so tags
// survive a round trip through a Reminders.app notes field, which has
// no native tag concept of its own.
func encodeNotes(notes string, tags []string) string {
	if len(tags) == 0 {
		return notes
	}
	return notes + tagDelimiter + strings.Join(tags, ",")
}

// decodeNotes splits a reminder's raw notes field back into free-text
// notes and the tag set, inverting encodeNotes.
func decodeNotes(raw string) (notes string, tags []string) {
	idx := strings.Index(raw, tagDelimiter)
	if idx < 0 {
		return raw, nil
	}
	notes = raw[:idx]
	tagBlock := raw[idx+len(tagDelimiter):]
	for _, tag := range strings.Split(tagBlock, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return notes, tags
}
