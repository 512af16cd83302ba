package lcd_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/micro32-project/micro32/bus"
	"github.com/micro32-project/micro32/drivers/lcd"
)

var _ = Describe("LCD", func() {
	var (
		b      *bus.Bus
		panel  *lcd.Device
		driver *lcd.Driver
	)

	BeforeEach(func() {
		b = bus.New()

		panel = lcd.NewDevice()
		b.Map("SPI", lcd.SPIBase, lcd.SPILimit, panel)
		b.Map("GPIO", lcd.GPIOBase, lcd.GPIOLimit, panel)

		driver = lcd.NewDriver(b)
	})

	It("should wake the panel up during initialization", func() {
		Expect(driver.Initialize()).To(Succeed())

		Expect(panel.Awake).To(BeTrue())
		Expect(panel.DisplayOn).To(BeTrue())
	})

	It("should draw a pixel at the addressed position", func() {
		Expect(driver.Initialize()).To(Succeed())

		Expect(driver.DrawPixel(10, 20, 0xF800)).To(Succeed())

		Expect(panel.Pixel(10, 20)).To(Equal(uint16(0xF800)))
		Expect(panel.Pixel(11, 20)).To(Equal(uint16(0)))
	})

	It("should fill the whole panel on clear", func() {
		Expect(driver.Initialize()).To(Succeed())

		Expect(driver.ClearScreen(0x001F)).To(Succeed())

		Expect(panel.Pixel(0, 0)).To(Equal(uint16(0x001F)))
		Expect(panel.Pixel(lcd.Width-1, 0)).To(Equal(uint16(0x001F)))
		Expect(panel.Pixel(0, lcd.Height-1)).To(Equal(uint16(0x001F)))
		Expect(panel.Pixel(lcd.Width-1, lcd.Height-1)).To(
			Equal(uint16(0x001F)))
	})

	It("should advance one cell per printed character", func() {
		Expect(driver.Initialize()).To(Succeed())

		Expect(driver.PrintString("Hi!", 0, 16, 0xFFFF)).To(Succeed())

		Expect(panel.Pixel(0, 16)).To(Equal(uint16(0xFFFF)))
		Expect(panel.Pixel(8, 16)).To(Equal(uint16(0xFFFF)))
		Expect(panel.Pixel(16, 16)).To(Equal(uint16(0xFFFF)))
		Expect(panel.Pixel(24, 16)).To(Equal(uint16(0)))
	})

	It("should render integers as text", func() {
		Expect(driver.Initialize()).To(Succeed())

		Expect(driver.PrintInt(-42, 4, 32, 0xFFFF)).To(Succeed())

		Expect(panel.Pixel(4, 32)).To(Equal(uint16(0xFFFF)))
		Expect(panel.Pixel(12, 32)).To(Equal(uint16(0xFFFF)))
		Expect(panel.Pixel(20, 32)).To(Equal(uint16(0xFFFF)))
		Expect(panel.Pixel(28, 32)).To(Equal(uint16(0)))
	})

	It("should reject non-word register accesses", func() {
		Expect(panel.CanAccess(lcd.SPICmdReg, 2)).To(BeFalse())
		Expect(panel.CanAccess(lcd.SPICmdReg+1, 4)).To(BeFalse())
		Expect(panel.CanAccess(lcd.SPICmdReg, 4)).To(BeTrue())
	})

	It("should reset on a software reset command", func() {
		Expect(driver.Initialize()).To(Succeed())
		Expect(driver.DrawPixel(0, 0, 0xFFFF)).To(Succeed())

		Expect(b.Write32(lcd.SPICmdReg, 0)).To(Succeed())
		Expect(b.Write32(lcd.SPIDataReg, 0x01)).To(Succeed())

		Expect(panel.Awake).To(BeFalse())
		Expect(panel.Pixel(0, 0)).To(Equal(uint16(0)))
	})
})
