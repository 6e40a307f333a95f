// Package session provides the session registry for the Huarong Pass server.
//
// A session is one puzzle in progress: its own engine, the layout it was
// opened on, and access timestamps. The registry keeps sessions in memory
// keyed by lowercased ID and can mirror them to a SessionPersistence.
//
// Session Identifiers:
//
// Generated IDs are 4 random hex characters. Callers may pick their own IDs;
// lookups ignore case but the session keeps the spelling it was created with.
//
// Persistence:
//
// FilePersistence writes one JSON document per session. SQLitePersistence
// keeps one row per session in a WAL-mode SQLite database. Both rebuild the
// engine from the stored layout ID and then restore the saved board, move
// counters and any open drag gesture.
//
// Usage:
//
//	store, err := session.NewSQLitePersistence("sessions.db", configManager)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	manager := session.NewManagerWithPersistence(store)
//	if err := manager.LoadPersistedSessions(); err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err := manager.Create("", layout)
//
// Cleanup:
//
// CleanupExpiredSessions drops idle sessions from memory; PruneOrphaned drops
// sessions whose stored copy was removed by another process.
package session
