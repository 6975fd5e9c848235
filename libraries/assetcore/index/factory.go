// Copyright 2025 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package index

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/dolthub/assetvcs/libraries/assetcore/vcserr"
)

const (
	sqliteDriver   = "sqlite"
	mysqlDriver    = "mysql"
	postgresDriver = "postgres"
)

var memIndexesMu sync.Mutex
var memIndexes = map[string]*MemRepositoryIndex{}

// Open returns the RepositoryIndex described by |urlStr|. Supported schemes:
//
//	mem://name              process wide in memory index, shared by name
//	sqlite:///path/to.db    sqlite database file (file:// is an alias)
//	mysql://user:pw@host/db mysql database
//	postgres://...          postgres database
//	http://host:port        index server
func Open(ctx context.Context, urlStr string) (RepositoryIndex, error) {
	u, err := url.Parse(urlStr)
	if err != nil {
		return nil, vcserr.ErrInvalidArgument.New("invalid index url `" + urlStr + "`: " + err.Error())
	}

	switch strings.ToLower(u.Scheme) {
	case "mem":
		memIndexesMu.Lock()
		defer memIndexesMu.Unlock()
		name := u.Host + u.Path
		ri, ok := memIndexes[name]
		if !ok {
			ri = NewMemRepositoryIndex()
			memIndexes[name] = ri
		}
		return ri, nil

	case "sqlite", "file":
		return OpenSQLRepositoryIndex(ctx, sqliteDriver, sqliteDSN(u))

	case "mysql":
		return OpenSQLRepositoryIndex(ctx, mysqlDriver, mysqlDSN(u))

	case "postgres", "postgresql":
		dsn, err := pq.ParseURL(urlStr)
		if err != nil {
			return nil, vcserr.ErrInvalidArgument.New("invalid postgres url: " + err.Error())
		}
		return OpenSQLRepositoryIndex(ctx, postgresDriver, dsn)

	case "http", "https":
		return NewRemoteRepositoryIndex(u.Scheme+"://"+u.Host+strings.TrimSuffix(u.Path, "/"), nil), nil
	}

	return nil, vcserr.ErrInvalidArgument.New("unsupported index url scheme `" + u.Scheme + "`")
}

func sqliteDSN(u *url.URL) string {
	p := u.Host + u.Path
	if p == "" {
		return ":memory:"
	}
	return p + "?_pragma=busy_timeout(5000)"
}

func mysqlDSN(u *url.URL) string {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	cfg.ParseTime = true
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	return cfg.FormatDSN()
}
