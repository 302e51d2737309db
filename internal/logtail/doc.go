// Package logtail reads the end of Repeater's JSON log file and formats
// entries for the terminal.
//
// Tail keeps a ring buffer of the last N entries, so memory stays bounded by
// N regardless of file size. Entries are filtered by level before they
// enter the buffer, so "the last 20 warnings" means twenty warnings even
// when thousands of info lines follow them.
//
//	entries, err := logtail.Tail(cfg.LogFile, logtail.Options{Lines: 50, MinLevel: zapcore.WarnLevel})
//	for _, e := range entries {
//		fmt.Println(e.Format())
//	}
package logtail
