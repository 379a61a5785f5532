package pgwire_test

import (
	"net"
	"strconv"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	pgwire "github.com/VyacheslavHashov/postgres-wire"
)

func dialOptions(addr string) *pgwire.Options {
	host, portStr, err := net.SplitHostPort(addr)
	Expect(err).NotTo(HaveOccurred())
	port, err := strconv.Atoi(portStr)
	Expect(err).NotTo(HaveOccurred())
	return &pgwire.Options{
		Host:        host,
		Port:        uint16(port),
		User:        "tester",
		Database:    "app",
		DialTimeout: 2 * time.Second,
	}
}

// writeHandshake drains the StartupMessage and replies with a trust-auth
// handshake: AuthenticationOk, BackendKeyData, two ParameterStatus entries,
// ReadyForQuery.
func writeHandshake(conn net.Conn) {
	_, err := readUntaggedFrame(conn) // StartupMessage
	Expect(err).NotTo(HaveOccurred())

	_, err = conn.Write(frame('R', int32be(0))) // AuthenticationOk
	Expect(err).NotTo(HaveOccurred())

	bkd := append(int32be(4242), int32be(9999)...)
	_, err = conn.Write(frame('K', bkd))
	Expect(err).NotTo(HaveOccurred())

	_, err = conn.Write(frame('S', append(cstr("server_version"), cstr("13.2")...)))
	Expect(err).NotTo(HaveOccurred())
	_, err = conn.Write(frame('S', append(cstr("integer_datetimes"), cstr("on")...)))
	Expect(err).NotTo(HaveOccurred())

	_, err = conn.Write(frame('Z', []byte{'I'}))
	Expect(err).NotTo(HaveOccurred())
}

var _ = Describe("Connect and simple query", func() {
	It("populates session parameters and runs a simple query", func() {
		addr, stop, err := startFakeServer(func(conn net.Conn) {
			defer conn.Close()
			writeHandshake(conn)

			for {
				tag, _, err := readFrame(conn)
				if err != nil {
					return
				}
				switch tag {
				case 'Q':
					row1 := append(int16be(1), append(int32be(1), []byte("1")...)...)
					row2 := append(int16be(1), append(int32be(1), []byte("2")...)...)
					_, _ = conn.Write(frame('D', row1))
					_, _ = conn.Write(frame('D', row2))
					_, _ = conn.Write(frame('C', cstr("SELECT 2")))
					_, _ = conn.Write(frame('Z', []byte{'I'}))
				case 'X':
					return
				}
			}
		})
		Expect(err).NotTo(HaveOccurred())
		defer stop()

		cn, err := pgwire.Connect(dialOptions(addr), nil)
		Expect(err).NotTo(HaveOccurred())
		defer cn.Close()

		Expect(cn.ProcessID).To(Equal(int32(4242)))
		Expect(cn.SecretKey).To(Equal(int32(9999)))
		Expect(cn.Params.ServerVersion.Major).To(Equal(13))
		Expect(cn.Params.IntegerDatetimes).To(BeTrue())

		Expect(cn.SendSimpleQuery("select n from t")).To(Succeed())

		data, err := cn.ReadNextData()
		Expect(err).NotTo(HaveOccurred())
		Expect(data.Rows).To(HaveLen(2))
		Expect(data.Rows[0].Columns[0]).To(Equal([]byte("1")))
		Expect(data.Rows[1].Columns[0]).To(Equal([]byte("2")))
	})
})

var _ = Describe("Extended query describe", func() {
	It("reports parameter and result column metadata", func() {
		addr, stop, err := startFakeServer(func(conn net.Conn) {
			defer conn.Close()
			writeHandshake(conn)

			for {
				tag, payload, err := readFrame(conn)
				if err != nil {
					return
				}
				switch tag {
				case 'P':
					// Parse: no reply required before Sync in this driver.
				case 'D':
					if len(payload) > 0 && payload[0] == 'S' {
						_, _ = conn.Write(frame('t', int16be(0)))
						field := append(cstr("n"), make([]byte, 18)...)
						_, _ = conn.Write(frame('T', append(int16be(1), field...)))
					}
				case 'S':
					_, _ = conn.Write(frame('Z', []byte{'I'}))
				case 'X':
					return
				}
			}
		})
		Expect(err).NotTo(HaveOccurred())
		defer stop()

		cn, err := pgwire.Connect(dialOptions(addr), nil)
		Expect(err).NotTo(HaveOccurred())
		defer cn.Close()

		result, err := cn.DescribeStatement("select $1")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.ParamOids).To(BeEmpty())
		Expect(result.Fields).To(HaveLen(1))
		Expect(result.Fields[0].Name).To(Equal("n"))
	})
})

var _ = Describe("Server error in a simple query", func() {
	It("surfaces the error through ReadNextData", func() {
		addr, stop, err := startFakeServer(func(conn net.Conn) {
			defer conn.Close()
			writeHandshake(conn)

			for {
				tag, _, err := readFrame(conn)
				if err != nil {
					return
				}
				switch tag {
				case 'Q':
					errPayload := []byte{'S'}
					errPayload = append(errPayload, cstr("ERROR")...)
					errPayload = append(errPayload, 'C')
					errPayload = append(errPayload, cstr("42601")...)
					errPayload = append(errPayload, 'M')
					errPayload = append(errPayload, cstr("syntax error")...)
					errPayload = append(errPayload, 0)
					_, _ = conn.Write(frame('E', errPayload))
					_, _ = conn.Write(frame('Z', []byte{'E'}))
				case 'X':
					return
				}
			}
		})
		Expect(err).NotTo(HaveOccurred())
		defer stop()

		cn, err := pgwire.Connect(dialOptions(addr), nil)
		Expect(err).NotTo(HaveOccurred())
		defer cn.Close()

		Expect(cn.SendSimpleQuery("bogus sql")).To(Succeed())

		_, err = cn.ReadNextData()
		Expect(err).To(HaveOccurred())
		pgErr, ok := err.(*pgwire.PostgresError)
		Expect(ok).To(BeTrue())
		Expect(pgErr.Desc.Code).To(Equal("42601"))
	})
})
