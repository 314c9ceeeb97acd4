package controllers

// The demo backend answers every generation request with the same reference
// design, a 4-bit synchronous counter.

const sampleTitle = "4-bit Counter Implementation"

const sampleVerilog = `// 4-bit Synchronous Counter
module counter_4bit (
    input clk,
    input rst,
    output reg [3:0] out
);

always @(posedge clk or posedge rst)
begin
    if (rst)
        out <= 4'b0000;
    else
        out <= out + 1;
end

endmodule`

const sampleTestbench = `// Testbench for 4-bit Counter
module testbench;
    reg clk = 0;
    reg rst = 1;
    wire [3:0] out;

    counter_4bit uut (
        .clk(clk),
        .rst(rst),
        .out(out)
    );

    always #5 clk = ~clk;

    initial begin
        $monitor("Time: %t | Output: %d", $time, out);

        #10 rst = 0;
        #200 $finish;
    end

endmodule`

const sampleSimulation = `Time: 0 | Output: x
Time: 10 | Output: 0
Time: 20 | Output: 1
Time: 30 | Output: 2
Time: 40 | Output: 3
Time: 50 | Output: 4
Time: 60 | Output: 5
Time: 70 | Output: 6
Time: 80 | Output: 7
Time: 90 | Output: 8
Time: 100 | Output: 9
Time: 110 | Output: 10
Time: 120 | Output: 11
Time: 130 | Output: 12
Time: 140 | Output: 13
Time: 150 | Output: 14
Time: 160 | Output: 15
Time: 170 | Output: 0
...`
