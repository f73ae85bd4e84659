// Package storage provides the persistent quote collection behind the bot.
//
// It currently supports:
//   - Random quote sampling (the only read path the serving core needs)
//   - Daily-broadcast subscriber state
//
// Quotes themselves are read-only through this interface; ingestion happens
// out-of-band (the sqlite schema is created here so an ingester has a table
// to fill).
package storage
