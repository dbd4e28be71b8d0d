// Command devtoken prints a signed access token for local testing against
// a server that shares the same JWT_SECRET.  In production tokens come from
// the identity service.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/iliyamo/service-booking/internal/config"
	"github.com/iliyamo/service-booking/internal/model"
	"github.com/iliyamo/service-booking/internal/utils"
)

func main() {
	id := flag.Uint64("user", 4, "user id placed in the sub claim")
	role := flag.String("role", string(model.RoleCustomer), "CUSTOMER, PROVIDER or ADMIN")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	r := model.Role(strings.ToUpper(*role))
	if !r.Valid() {
		log.Fatalf("unknown role %q", *role)
	}
	tok, err := utils.NewAccessToken(cfg.JWTSecret, *id, r, *ttl)
	if err != nil {
		log.Fatalf("sign: %v", err)
	}
	fmt.Println(tok.Token)
}
