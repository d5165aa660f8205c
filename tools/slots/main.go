package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/config"
	"github.com/md-rashed-zaman/slotbook/libs/grpcx"
	"github.com/md-rashed-zaman/slotbook/libs/rpc/availabilityv1"
)

// slots queries the booking-service availability endpoint over gRPC and
// prints the result as JSON.
func main() {
	_ = config.Load()

	var (
		addr         = flag.String("addr", config.String("BOOKING_GRPC_ADDR", "localhost:9093"), "booking-service gRPC address")
		business     = flag.String("business-id", config.String("BUSINESS_ID", ""), "business id")
		professional = flag.String("professional-id", config.String("PROFESSIONAL_ID", ""), "professional id")
		service      = flag.String("service-id", config.String("SERVICE_ID", ""), "service id")
		date         = flag.String("date", time.Now().Format("2006-01-02"), "date (YYYY-MM-DD)")
		timeout      = flag.Duration("timeout", 5*time.Second, "request timeout")
	)
	flag.Parse()

	for name, v := range map[string]string{"business-id": *business, "professional-id": *professional, "service-id": *service} {
		if strings.TrimSpace(v) == "" {
			fatal(name + " is required")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, err := grpcx.Dial(ctx, *addr, grpcx.DialOptions{Timeout: *timeout})
	if err != nil {
		fatal(err.Error())
	}
	defer conn.Close()

	resp, err := availabilityv1.NewClient(conn).GetAvailableSlots(ctx, availabilityv1.SlotsRequest{
		BusinessID:     *business,
		ProfessionalID: *professional,
		ServiceID:      *service,
		Date:           *date,
	})
	if err != nil {
		fatal(err.Error())
	}

	slots := resp.AvailableSlots
	if slots == nil {
		slots = []string{}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(map[string]any{"availableSlots": slots})
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
